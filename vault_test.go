// komandan
package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	password := []byte("correct horse battery staple")
	plain := []byte(`[{"name":"db01","user":"deploy","password":"s3cret"}]`)

	cipherText, err := encrypt(plain, password)
	if err != nil {
		t.Fatalf("encrypt returned error: %v", err)
	}

	decrypted, err := decrypt(cipherText, password)
	if err != nil {
		t.Fatalf("decrypt returned error: %v", err)
	}
	if decrypted != string(plain) {
		t.Fatalf("decrypted = %q, want %q", decrypted, string(plain))
	}
}

func TestDecryptWrongPasswordFails(t *testing.T) {
	cipherText, err := encrypt([]byte("payload"), []byte("right-password"))
	if err != nil {
		t.Fatalf("encrypt returned error: %v", err)
	}
	if _, err := decrypt(cipherText, []byte("wrong-password")); err == nil {
		t.Fatal("decrypt with the wrong password: expected error, got nil")
	}
}

func TestDecryptRejectsTruncatedInput(t *testing.T) {
	if _, err := decrypt([]byte("dG9vc2hvcnQ="), []byte("anything")); err == nil {
		t.Fatal("decrypt with a too-short payload: expected error, got nil")
	}
}

func TestVaultPutLookupAndRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.enc")
	v := newVault(path)
	password := []byte("vault-master-password")

	if err := v.Put(VaultEntry{Name: "db01", User: "deploy", Password: "s3cret"}, password); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	entry, ok := v.Lookup("db01")
	if !ok {
		t.Fatal("Lookup(db01) after Put: expected an entry, got none")
	}
	if entry.User != "deploy" || entry.Password != "s3cret" {
		t.Fatalf("Lookup(db01) = %+v, want user=deploy password=s3cret", entry)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Put should have written the vault file: %v", err)
	}

	if err := v.Remove("db01", password); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if _, ok := v.Lookup("db01"); ok {
		t.Fatal("Lookup(db01) after Remove: expected no entry")
	}
}

func TestVaultPutPersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.enc")
	password := []byte("vault-master-password")

	v1 := newVault(path)
	if err := v1.Put(VaultEntry{Name: "web01", User: "ops"}, password); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading vault file: %v", err)
	}
	decrypted, err := decrypt(raw, password)
	if err != nil {
		t.Fatalf("decrypt of the written vault file failed: %v", err)
	}
	if !contains(decrypted, `"web01"`) {
		t.Fatalf("decrypted vault contents = %q, want it to mention web01", decrypted)
	}
}

func TestSHA256SumKnownValue(t *testing.T) {
	got := SHA256Sum([]byte("abc"))
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Fatalf("SHA256Sum(\"abc\") = %q, want %q", got, want)
	}
}
