package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cargo-insurance-service/internal/domain"
	"cargo-insurance-service/internal/ports"
)

// SubnameProvider resolves a display name and avatar for an address from an
// offchain subname registry. Presentation data only; the core never acts on
// what this returns.
type SubnameProvider struct {
	session *http.Client
	baseURL string
	apiKey  string
}

func NewSubnameProvider(baseURL, apiKey string) (*SubnameProvider, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("subname registry base url is empty")
	}
	return &SubnameProvider{
		session: &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}, nil
}

type subnameRecord struct {
	FullName string            `json:"fullName"`
	Texts    map[string]string `json:"texts"`
}

type subnameResponse struct {
	Items []subnameRecord `json:"items"`
}

// Resolve returns the first registered subname for the address. An address
// with no subname resolves to an empty identity, not an error.
func (p *SubnameProvider) Resolve(ctx context.Context, addr domain.Address) (ports.Identity, error) {
	endpoint := fmt.Sprintf("%s/subnames?owner=%s", p.baseURL, url.QueryEscape(addr.String()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ports.Identity{}, fmt.Errorf("create subname request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("x-auth-token", p.apiKey)
	}

	resp, err := p.session.Do(req)
	if err != nil {
		return ports.Identity{}, fmt.Errorf("resolve identity for %s: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ports.Identity{}, nil
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return ports.Identity{}, fmt.Errorf(
			"resolve identity for %s: registry returned %d: %s",
			addr, resp.StatusCode, strings.TrimSpace(string(b)),
		)
	}

	var out subnameResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ports.Identity{}, fmt.Errorf("decode subname response: %w", err)
	}
	if len(out.Items) == 0 {
		return ports.Identity{}, nil
	}

	first := out.Items[0]
	return ports.Identity{
		Name:   first.FullName,
		Avatar: first.Texts["avatar"],
	}, nil
}
