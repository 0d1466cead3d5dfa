// Package crypto implements the AES-CBC/HMAC-SHA256 crypto suite used for
// secure attach and secure data on local connections.
//
// Design:
//   - All key material derives from the 16-byte preshared key via HKDF-SHA256
//   - Attach proves knowledge of the key with HMAC-SHA256 over both nonces
//   - Data is sealed encrypt-then-MAC: AES-128-CBC with PKCS#7 padding, then HMAC-SHA256
//   - Each direction has its own encryption and MAC keys
package crypto
