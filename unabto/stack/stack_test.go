package stack

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TheusHen/unabto-go/unabto/app"
)

func TestDefaultSetup(t *testing.T) {
	s := DefaultSetup()
	assert.Empty(t, s.ID)
	assert.False(t, s.SecureAttach)
	assert.False(t, s.SecureData)
	assert.Equal(t, CryptoNone, s.CryptoSuite)
	assert.Equal(t, [PresharedKeySize]byte{}, s.PresharedKey)
	assert.True(t, s.EnableLocalConnection)
	assert.True(t, s.EnableRemoteConnection)
	assert.True(t, s.EnableDNSFallback)
	assert.Equal(t, DefaultLocalAddr, s.LocalAddr)
}

func TestDispatcherFunc(t *testing.T) {
	var d Dispatcher = DispatcherFunc(func(req *app.Request, _ *app.Reader, _ *app.Writer) app.Result {
		if req.QueryID == 7 {
			return app.ResultResponseReady
		}
		return app.ResultInvalidQueryID
	})
	assert.Equal(t, app.ResultResponseReady, d.Dispatch(&app.Request{QueryID: 7}, nil, nil))
	assert.Equal(t, app.ResultInvalidQueryID, d.Dispatch(&app.Request{QueryID: 8}, nil, nil))
}

func TestCryptoSuiteString(t *testing.T) {
	assert.Equal(t, "aes-cbc-hmac-sha256", CryptoAESCBCHMACSHA256.String())
	assert.Equal(t, "unknown", CryptoSuite(9).String())
}
