package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/pbkdf2"

	"snowbook/internal/common"
	"snowbook/pkg/errors"
)

const (
	// Keyring service name
	keyringService = "snowbook"
	// Salt size for key derivation
	saltSize = 32
	// Number of iterations for PBKDF2
	pbkdf2Iterations = 100000
	// Key size for AES-256
	keySize = 32
)

// CredentialManager handles secure storage and retrieval of warehouse
// credentials. The OS keyring is preferred; when unavailable, credentials
// fall back to AES-GCM encrypted files under the snowbook home.
type CredentialManager struct {
	useKeyring bool
	baseDir    string
	masterKey  []byte
}

// Credential represents a stored credential
type Credential struct {
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	Value     string            `json:"value"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Encrypted bool              `json:"encrypted"`
}

// NewCredentialManager creates a credential manager rooted at baseDir
// (defaults to ~/.snowbook when empty)
func NewCredentialManager(baseDir string) (*CredentialManager, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".snowbook")
	}

	cm := &CredentialManager{
		useKeyring: isKeyringAvailable(),
		baseDir:    baseDir,
	}

	if !cm.useKeyring {
		key, err := cm.getMasterKey()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize master key: %w", err)
		}
		cm.masterKey = key
	}

	return cm, nil
}

// Store securely stores a credential
func (cm *CredentialManager) Store(name, credType, value string) error {
	if cm.useKeyring {
		return cm.storeInKeyring(name, credType, value)
	}
	return cm.storeEncrypted(name, credType, value)
}

// Get retrieves a stored credential
func (cm *CredentialManager) Get(name string) (*Credential, error) {
	if cm.useKeyring {
		return cm.getFromKeyring(name)
	}
	return cm.getEncrypted(name)
}

// Delete removes a stored credential
func (cm *CredentialManager) Delete(name string) error {
	if cm.useKeyring {
		if err := keyring.Delete(keyringService, name); err != nil && err != keyring.ErrNotFound {
			return err
		}
	}
	return os.Remove(cm.credentialPath(name))
}

// List returns stored credential names. The keyring cannot enumerate
// entries, so the file index mirrors keyring-backed names too.
func (cm *CredentialManager) List() ([]string, error) {
	return cm.listEncrypted()
}

// Keyring storage

func (cm *CredentialManager) storeInKeyring(name, credType, value string) error {
	cred := Credential{Name: name, Type: credType, Value: value}

	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	if err := keyring.Set(keyringService, name, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}

	// Mirror the name into the file index so List works
	return cm.saveCredentialFile(name, &Credential{Name: name, Type: credType})
}

func (cm *CredentialManager) getFromKeyring(name string) (*Credential, error) {
	data, err := keyring.Get(keyringService, name)
	if err != nil {
		if err == keyring.ErrNotFound {
			return nil, errors.New(errors.ErrCodeCredentialNotFound,
				fmt.Sprintf("credential %q not found", name))
		}
		return nil, fmt.Errorf("failed to get from keyring: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal([]byte(data), &cred); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential: %w", err)
	}

	return &cred, nil
}

// Encrypted file storage

func (cm *CredentialManager) storeEncrypted(name, credType, value string) error {
	encrypted, err := cm.encrypt(value)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeEncryptionFailed, "failed to encrypt credential")
	}

	cred := Credential{
		Name:      name,
		Type:      credType,
		Value:     encrypted,
		Encrypted: true,
	}

	return cm.saveCredentialFile(name, &cred)
}

func (cm *CredentialManager) getEncrypted(name string) (*Credential, error) {
	cred, err := cm.loadCredentialFile(name)
	if err != nil {
		return nil, err
	}

	if cred.Encrypted {
		decrypted, err := cm.decrypt(cred.Value)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeEncryptionFailed, "failed to decrypt credential")
		}
		cred.Value = decrypted
		cred.Encrypted = false
	}

	return cred, nil
}

func (cm *CredentialManager) listEncrypted() ([]string, error) {
	entries, err := os.ReadDir(cm.credentialsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".cred") {
			names = append(names, strings.TrimSuffix(entry.Name(), ".cred"))
		}
	}

	return names, nil
}

// Encryption

func (cm *CredentialManager) encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(cm.masterKey)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (cm *CredentialManager) decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(cm.masterKey)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, encryptedData := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, encryptedData, nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}

// Helper methods

func (cm *CredentialManager) getMasterKey() ([]byte, error) {
	keyPath := cm.masterKeyPath()

	data, err := os.ReadFile(keyPath) // #nosec G304 - path is under the snowbook home
	if err == nil {
		if len(data) != saltSize+keySize {
			return nil, fmt.Errorf("invalid master key file size")
		}
		return data[saltSize:], nil
	}

	// Generate a new master key
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}

	key := pbkdf2.Key([]byte(machineID()), salt, pbkdf2Iterations, keySize, sha256.New)

	keyData := append(salt, key...)
	if err := os.MkdirAll(cm.credentialsDir(), common.DirPermissionSecure); err != nil {
		return nil, err
	}

	if err := os.WriteFile(keyPath, keyData, common.FilePermissionSecure); err != nil {
		return nil, err
	}

	return key, nil
}

func (cm *CredentialManager) credentialsDir() string {
	return filepath.Join(cm.baseDir, "credentials")
}

func (cm *CredentialManager) credentialPath(name string) string {
	return filepath.Join(cm.credentialsDir(), name+".cred")
}

func (cm *CredentialManager) masterKeyPath() string {
	return filepath.Join(cm.credentialsDir(), ".master")
}

func (cm *CredentialManager) saveCredentialFile(name string, cred *Credential) error {
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cm.credentialsDir(), common.DirPermissionSecure); err != nil {
		return err
	}

	path, err := common.ValidatePath(cm.credentialPath(name), cm.credentialsDir())
	if err != nil {
		return fmt.Errorf("invalid credential file path: %w", err)
	}
	return os.WriteFile(path, data, common.FilePermissionSecure)
}

func (cm *CredentialManager) loadCredentialFile(name string) (*Credential, error) {
	path, err := common.ValidatePath(cm.credentialPath(name), cm.credentialsDir())
	if err != nil {
		return nil, fmt.Errorf("invalid credential file path: %w", err)
	}

	data, err := os.ReadFile(path) // #nosec G304 - path is validated
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeCredentialNotFound,
				fmt.Sprintf("credential %q not found", name))
		}
		return nil, err
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, err
	}

	return &cred, nil
}

// isKeyringAvailable probes the OS keyring with a throwaway entry
func isKeyringAvailable() bool {
	const probe = "snowbook-keyring-probe"
	if err := keyring.Set(keyringService, probe, "ok"); err != nil {
		return false
	}
	_ = keyring.Delete(keyringService, probe)
	return true
}

// machineID derives a stable per-machine identifier for key derivation
func machineID() string {
	hostname, _ := os.Hostname()
	home, _ := os.UserHomeDir()
	return fmt.Sprintf("%s-%s-snowbook", hostname, home)
}
