// komandan
package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/kevinburke/ssh_config"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// ###########################################
//      SSH CONFIG / HOST-KEY HANDLING
// ###########################################

var knownHostMutex sync.Mutex

// sshIdentityToKey loads a private key (directly, via passphrase prompt,
// or through the SSH agent for a public identity) and returns it plus its
// key algorithm, which the caller logs.
func sshIdentityToKey(identityFile string) (privateKey ssh.Signer, keyAlgo string, err error) {
	raw, err := os.ReadFile(expandHomeDirectory(identityFile))
	if err != nil {
		err = fmt.Errorf("ssh identity file: %v", err)
		return
	}

	if key, parseErr := ssh.ParsePrivateKey(raw); parseErr == nil {
		privateKey = key
		keyAlgo = key.PublicKey().Type()
		return
	} else if _, missing := parseErr.(*ssh.PassphraseMissingError); missing {
		var passphrase []byte
		passphrase, err = promptUserForSecret("Enter passphrase for the SSH key `%s`: ", identityFile)
		if err != nil {
			return
		}
		privateKey, err = ssh.ParsePrivateKeyWithPassphrase(raw, passphrase)
		if err != nil {
			err = fmt.Errorf("invalid encrypted private key in identity file: %v", err)
			return
		}
		keyAlgo = privateKey.PublicKey().Type()
		return
	}

	if pubKey, _, _, _, parseErr := ssh.ParseAuthorizedKey(raw); parseErr == nil {
		return agentKeyFor(pubKey)
	}

	err = fmt.Errorf("unknown identity file format")
	return
}

// agentKeyFor finds the private key in the running SSH agent matching the
// given public identity.
func agentKeyFor(publicKey ssh.PublicKey) (privateKey ssh.Signer, keyAlgo string, err error) {
	agentSock := os.Getenv("SSH_AUTH_SOCK")
	if agentSock == "" {
		err = fmt.Errorf("cannot use agent, SSH_AUTH_SOCK is not set")
		return
	}

	conn, err := net.Dial("unix", agentSock)
	if err != nil {
		err = fmt.Errorf("ssh agent: %v", err)
		return
	}

	sshAgent := agent.NewClient(conn)
	signers, err := sshAgent.Signers()
	if err != nil {
		err = fmt.Errorf("ssh agent signers: %v", err)
		return
	}

	keyAlgo = publicKey.Type()
	for _, signer := range signers {
		if string(signer.PublicKey().Marshal()) == string(publicKey.Marshal()) {
			privateKey = signer
			return
		}
	}

	err = fmt.Errorf("no matching key found in ssh agent")
	return
}

// sshConfigResolver reads ~/.ssh/config (via kevinburke/ssh_config) to
// fill in Host fields the user's task left blank: User, Port and
// IdentityFile, looked up by the host's name. ProxyJump can be read but the
// dispatcher does not use it.
type sshConfigResolver struct {
	cfg *ssh_config.Config
}

func loadSSHConfigResolver(path string) (*sshConfigResolver, error) {
	path = expandHomeDirectory(path)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &sshConfigResolver{}, nil
		}
		return nil, err
	}

	cfg, err := ssh_config.Decode(strings.NewReader(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("failed decoding ssh config: %v", err)
	}
	return &sshConfigResolver{cfg: cfg}, nil
}

func (r *sshConfigResolver) get(alias, key string) string {
	if r == nil || r.cfg == nil {
		return ""
	}
	value, _ := r.cfg.Get(alias, key)
	return value
}

func (r *sshConfigResolver) User(alias string) string         { return r.get(alias, "User") }
func (r *sshConfigResolver) IdentityFile(alias string) string { return r.get(alias, "IdentityFile") }
func (r *sshConfigResolver) ProxyJump(alias string) string    { return r.get(alias, "ProxyJump") }

func (r *sshConfigResolver) Port(alias string) int {
	raw := r.get(alias, "Port")
	if raw == "" {
		return 0
	}
	port, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return port
}

// hostKeyCallback builds a golang.org/x/crypto/ssh/knownhosts callback for
// the given known_hosts path, creating the file if absent. An unrecognized
// host key falls back to an interactive trust-on-first-use prompt rather
// than failing the connection outright; "all" trusts every unknown key for
// the remainder of the process run, mirroring the original controller's
// known_hosts prompt.
func hostKeyCallback(knownHostsPath string) (ssh.HostKeyCallback, error) {
	knownHostsPath = expandHomeDirectory(knownHostsPath)

	if _, err := os.Stat(knownHostsPath); os.IsNotExist(err) {
		f, createErr := os.Create(knownHostsPath)
		if createErr != nil {
			return nil, createErr
		}
		f.Close()
	}

	strict, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load known_hosts file %s: %v", knownHostsPath, err)
	}

	var trustAll bool
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := strict(hostname, remote, key)
		if err == nil {
			return nil
		}
		var keyErr *knownhosts.KeyError
		if !errors.As(err, &keyErr) || len(keyErr.Want) != 0 {
			return err
		}

		if !trustAll {
			printMessage(verbosityStandard, "Host %s not in known_hosts. Key: %s %s\n", hostname, key.Type(), ssh.FingerprintSHA256(key))
			answer, promptErr := promptUser("Add this key to known_hosts? [y/N/all]: ")
			if promptErr != nil {
				return promptErr
			}
			answer = strings.ToLower(strings.TrimSpace(answer))
			switch answer {
			case "all":
				trustAll = true
			case "y":
			default:
				return fmt.Errorf("host key for %s rejected by user", hostname)
			}
		}

		if writeErr := writeKnownHost(knownHostsPath, hostname, key); writeErr != nil {
			return writeErr
		}
		return nil
	}, nil
}

// writeKnownHost appends a hashed host-key entry; called by
// hostKeyCallback's trust-on-first-use path once an unknown key is
// accepted.
func writeKnownHost(knownHostsPath, hostname string, key ssh.PublicKey) error {
	knownHostMutex.Lock()
	defer knownHostMutex.Unlock()

	f, err := os.OpenFile(expandHomeDirectory(knownHostsPath), os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to open known_hosts file: %v", err)
	}
	defer f.Close()

	line := knownhosts.Line([]string{hostname}, key)
	if _, err = f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to write new known host entry: %v", err)
	}
	return nil
}

// parseEndpointAddress validates a host/port pair and renders the
// dial-ready "host:port" (bracketing IPv6 literals).
func parseEndpointAddress(address string, port int) (string, error) {
	if port <= 0 || port > 65535 {
		return "", &ValidationError{Field: "port", Message: fmt.Sprintf("port %d out of range", port)}
	}
	if strings.Contains(address, ":") && !strings.Contains(address, "[") {
		return fmt.Sprintf("[%s]:%d", address, port), nil
	}
	return fmt.Sprintf("%s:%d", address, port), nil
}

const sshVersionString = "SSH-2.0-komandan"
