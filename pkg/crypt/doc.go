// Package crypt protects wallet secrets before they leave the process.
//
// Mnemonics are never sent to the wallet daemon in clear text. A Cipher turns
// them into Fernet tokens (AES-128-CBC with an HMAC-SHA256 signature, URL-safe
// base64) which the daemon decrypts with the same key. The key is either
// derived from a shared secret with PBKDF2 or provisioned directly:
//
//	c, err := crypt.NewCipher(os.Getenv("ENCRYPTION_KEY"))
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	token, err := c.Encrypt(mnemonic)
//
// The PBKDF2 salt is fixed, so the same secret yields the same key on every
// installation.
package crypt
