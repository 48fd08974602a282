package config

import (
	"fmt"

	"github.com/hashicorp/vault/api"
)

// SecretManager reads the fabric's connection secrets from Vault. It only
// overlays what the env baseline already shaped, so a dev setup without
// Vault keeps working.
type SecretManager struct {
	client *api.Client
}

// NewSecretManager connects to the Vault server at address using a static
// token. Token renewal is out of scope; the fabric's deployments inject
// short-lived tokens per service.
func NewSecretManager(address, token string) (*SecretManager, error) {
	vcfg := api.DefaultConfig()
	vcfg.Address = address

	client, err := api.NewClient(vcfg)
	if err != nil {
		return nil, fmt.Errorf("config: vault client: %w", err)
	}
	client.SetToken(token)

	return &SecretManager{client: client}, nil
}

// GetSecret reads the raw data map at path. KV v2 responses keep their
// version envelope; use GetKV2 to unwrap it.
func (s *SecretManager) GetSecret(path string) (map[string]interface{}, error) {
	secret, err := s.client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("config: read secret %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("config: no secret at %s", path)
	}
	return secret.Data, nil
}

// GetKV2 reads from a KV v2 backend and returns the inner "data" map.
func (s *SecretManager) GetKV2(path string) (map[string]interface{}, error) {
	raw, err := s.GetSecret(path)
	if err != nil {
		return nil, err
	}
	data, ok := raw["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("config: %s is not a kv v2 secret", path)
	}
	return data, nil
}
