package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"cargo-insurance-service/internal/domain"
)

// Get returns the environment value for key, or fallback when unset.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Chain describes one supported network and the insurance deployment on it.
type Chain struct {
	Name      string `yaml:"name"`
	ChainID   uint64 `yaml:"chain_id"`
	RPCURL    string `yaml:"rpc_url"`
	Insurance string `yaml:"insurance_contract"`
	Token     string `yaml:"token_contract"`
	Explorer  string `yaml:"explorer"`
}

// Registry is the chain registry file: every network the service can talk
// to, plus which one is active. ${VAR} references in the file are expanded
// from the environment before parsing, so RPC keys stay out of the file.
type Registry struct {
	Active string  `yaml:"active"`
	Chains []Chain `yaml:"chains"`
}

// LoadRegistry reads and validates the chain registry at path.
func LoadRegistry(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load chain registry: %w", err)
	}

	expanded := os.ExpandEnv(string(raw))

	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)

	var reg Registry
	if err := dec.Decode(&reg); err != nil {
		return nil, fmt.Errorf("load chain registry %q: %w", path, err)
	}
	if err := reg.validate(); err != nil {
		return nil, fmt.Errorf("load chain registry %q: %w", path, err)
	}
	return &reg, nil
}

func (r *Registry) validate() error {
	if len(r.Chains) == 0 {
		return errors.New("no chains defined")
	}
	if strings.TrimSpace(r.Active) == "" {
		return errors.New("active chain is not set")
	}

	seen := make(map[uint64]string, len(r.Chains))
	for i, c := range r.Chains {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("chain %d: name is empty", i)
		}
		if c.ChainID == 0 {
			return fmt.Errorf("chain %q: chain_id is zero", c.Name)
		}
		if prev, dup := seen[c.ChainID]; dup {
			return fmt.Errorf("chain %q: chain_id %d already used by %q", c.Name, c.ChainID, prev)
		}
		seen[c.ChainID] = c.Name
		if strings.TrimSpace(c.RPCURL) == "" {
			return fmt.Errorf("chain %q: rpc_url is empty", c.Name)
		}
		if _, err := domain.ParseAddress(c.Insurance); err != nil {
			return fmt.Errorf("chain %q: insurance_contract: %w", c.Name, err)
		}
		if _, err := domain.ParseAddress(c.Token); err != nil {
			return fmt.Errorf("chain %q: token_contract: %w", c.Name, err)
		}
	}

	if _, err := r.ActiveChain(); err != nil {
		return err
	}
	return nil
}

// ActiveChain resolves the registry's active entry.
func (r *Registry) ActiveChain() (Chain, error) {
	for _, c := range r.Chains {
		if c.Name == r.Active {
			return c, nil
		}
	}
	return Chain{}, fmt.Errorf("active chain %q not found in registry", r.Active)
}
