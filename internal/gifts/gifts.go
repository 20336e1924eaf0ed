// Package gifts fetches random pictures users can request with the cat, dog
// and hotboy commands.
package gifts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/oggyb/chatible/internal/config"
)

// Kind names a gift command.
type Kind string

const (
	KindCat    Kind = "cat"
	KindDog    Kind = "dog"
	KindHotBoy Kind = "hotboy"
)

// ErrNoPicture is returned when a source has nothing to offer.
var ErrNoPicture = errors.New("no picture available")

// Provider resolves a gift kind to an image URL.
type Provider struct {
	http   *http.Client
	catAPI string
	dogAPI string
	hotBoy []string

	pick func(n int) int
}

func NewProvider(cfg *config.Config) *Provider {
	return &Provider{
		http:   &http.Client{Timeout: 10 * time.Second},
		catAPI: cfg.Gifts.CatAPI,
		dogAPI: cfg.Gifts.DogAPI,
		hotBoy: cfg.Gifts.HotBoyURLs,
		pick:   rand.Intn,
	}
}

// Picture returns an image URL for kind.
func (p *Provider) Picture(ctx context.Context, kind Kind) (string, error) {
	switch kind {
	case KindCat:
		// thecatapi: [{"url": "..."}]
		var out []struct {
			URL string `json:"url"`
		}
		if err := p.getJSON(ctx, p.catAPI, &out); err != nil {
			return "", err
		}
		if len(out) == 0 || out[0].URL == "" {
			return "", ErrNoPicture
		}
		return out[0].URL, nil

	case KindDog:
		// dog.ceo: {"message": "...", "status": "success"}
		var out struct {
			Message string `json:"message"`
		}
		if err := p.getJSON(ctx, p.dogAPI, &out); err != nil {
			return "", err
		}
		if out.Message == "" {
			return "", ErrNoPicture
		}
		return out.Message, nil

	case KindHotBoy:
		if len(p.hotBoy) == 0 {
			return "", ErrNoPicture
		}
		return p.hotBoy[p.pick(len(p.hotBoy))], nil
	}
	return "", fmt.Errorf("unknown gift kind %q", kind)
}

func (p *Provider) getJSON(ctx context.Context, endpoint string, out any) error {
	if endpoint == "" {
		return ErrNoPicture
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("gift request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gift request: unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("gift decode: %w", err)
	}
	return nil
}
