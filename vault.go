// komandan
package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// ###################################
//      CREDENTIAL VAULT
// ###################################

// Vault is an at-rest encrypted store of VaultEntry records. It is unlocked
// at most once per run: the first Unlock call prompts for the master
// password and decrypts the file into memory, subsequent calls are no-ops.
type Vault struct {
	mutex    sync.Mutex
	path     string
	unlocked bool
	entries  map[string]VaultEntry
}

func newVault(path string) *Vault {
	return &Vault{path: path, entries: make(map[string]VaultEntry)}
}

// Unlock reads and decrypts the vault file once, caching entries in memory
// for the remainder of the run.
func (v *Vault) Unlock() (err error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	if v.unlocked {
		return nil
	}

	printMessage(verbosityFullData, "      Vault: unlocking\n")

	lockedVault, err := os.ReadFile(v.path)
	if err != nil {
		return &VaultError{Op: "read", Err: err}
	}

	vaultPassword, err := promptUserForSecret("Enter password for vault: ")
	if err != nil {
		return &VaultError{Op: "prompt", Err: err}
	}

	unlocked, err := decrypt(lockedVault, vaultPassword)
	if err != nil {
		return &VaultError{Op: "decrypt", Err: err}
	}

	var entries []VaultEntry
	if err = json.Unmarshal([]byte(unlocked), &entries); err != nil {
		return &VaultError{Op: "unmarshal", Err: err}
	}

	for _, entry := range entries {
		v.entries[entry.Name] = entry
	}

	v.unlocked = true
	return nil
}

// Lookup returns the credential stored under name. Unlock must have been
// called first, directly or via Resolve.
func (v *Vault) Lookup(name string) (VaultEntry, bool) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	entry, ok := v.entries[name]
	return entry, ok
}

// Resolve unlocks the vault on demand and returns the entry for name.
func (v *Vault) Resolve(name string) (VaultEntry, error) {
	if err := v.Unlock(); err != nil {
		return VaultEntry{}, err
	}
	entry, ok := v.Lookup(name)
	if !ok {
		return VaultEntry{}, &VaultError{Op: "lookup", Err: fmt.Errorf("no vault entry named %q", name)}
	}
	return entry, nil
}

// Put adds or replaces an entry and re-encrypts the vault file in place.
func (v *Vault) Put(entry VaultEntry, vaultPassword []byte) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	v.entries[entry.Name] = entry
	return v.lockLocked(vaultPassword)
}

// Remove deletes an entry and re-encrypts the vault file in place.
func (v *Vault) Remove(name string, vaultPassword []byte) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	delete(v.entries, name)
	return v.lockLocked(vaultPassword)
}

func (v *Vault) lockLocked(vaultPassword []byte) error {
	var entries []VaultEntry
	for _, entry := range v.entries {
		entries = append(entries, entry)
	}

	plain, err := json.Marshal(entries)
	if err != nil {
		return &VaultError{Op: "marshal", Err: err}
	}

	cipherText, err := encrypt(plain, vaultPassword)
	if err != nil {
		return &VaultError{Op: "encrypt", Err: err}
	}

	if err = os.WriteFile(v.path, cipherText, 0600); err != nil {
		return &VaultError{Op: "write", Err: err}
	}

	return nil
}

// Derive a secure key from a password string using argon2
func deriveKey(password []byte, salt []byte) (derivedKey []byte) {
	// Argon2 parameters
	const time = 1
	const memory = 64 * 1024
	const threads = 4
	const keyLength = 32

	derivedKey = argon2.IDKey(password, salt, time, memory, threads, keyLength)
	return
}

// Encrypt a byte slice using a password with chacha20poly1305, returning a
// base64 string of salt+nonce+ciphertext.
func encrypt(plainTextBytes []byte, vaultPassword []byte) (cipherTextSaltNonce []byte, err error) {
	salt := make([]byte, 16)
	if _, err = io.ReadFull(rand.Reader, salt); err != nil {
		return
	}

	key := deriveKey(vaultPassword, salt)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return
	}

	ciphertext := aead.Seal(nil, nonce, plainTextBytes, nil)

	cipherTextSaltNonce = append(salt, append(nonce, ciphertext...)...)

	encoded := base64.StdEncoding.EncodeToString(cipherTextSaltNonce)
	cipherTextSaltNonce = []byte(encoded)
	return
}

// Decrypt a base64 salt+nonce+ciphertext blob using a password with
// chacha20poly1305, returning the plain text string.
func decrypt(cipherTextSaltNonce []byte, vaultPassword []byte) (plainText string, err error) {
	raw, err := base64.StdEncoding.DecodeString(string(cipherTextSaltNonce))
	if err != nil {
		err = fmt.Errorf("failed to decode cipher text from base64: %v", err)
		return
	}

	if len(raw) < 28 {
		err = fmt.Errorf("vault file is truncated or corrupt")
		return
	}

	salt := raw[:16]
	nonce := raw[16:28]
	cipherTextBytes := raw[28:]

	key := deriveKey(vaultPassword, salt)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return
	}

	plainTextBytes, err := aead.Open(nil, nonce, cipherTextBytes, nil)
	if err != nil {
		err = fmt.Errorf("failed to decrypt vault, wrong password or corrupt file: %v", err)
		return
	}

	plainText = string(plainTextBytes)
	return
}

// SHA256Sum hashes a byte slice and returns a hexadecimal digest, used by
// the upload module to verify that a transferred file landed intact.
func SHA256Sum(input []byte) (hash string) {
	hasher := sha256.New()
	hasher.Write(input)
	hash = hex.EncodeToString(hasher.Sum(nil))
	return
}
