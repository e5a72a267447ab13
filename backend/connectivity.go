package backend

import (
	"context"
	"log"
	"net/http"
	"time"
)

// ConnectedThreshold is the probe success ratio treated as "online".
const ConnectedThreshold = 0.5

// Prober answers the coarse "is the internet reachable" question before any
// backend-specific work is attempted.
type Prober struct {
	client  *Client
	timeout time.Duration
}

func NewProber(client *Client, timeout time.Duration) *Prober {
	return &Prober{client: client, timeout: timeout}
}

// Probe GETs every URL once and returns the success ratio in [0,1]. HTTP 200
// counts as success; everything else, including transport errors, counts as
// failure. No retries: this is a cheap signal, not a guarantee.
func (p *Prober) Probe(ctx context.Context, urls []string) float64 {
	if len(urls) == 0 {
		return 0
	}

	log.Printf("🌐 Testing connectivity...")
	successes := 0
	for _, url := range urls {
		reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
		status, _, err := p.client.GetJSON(reqCtx, url)
		cancel()
		if err == nil && status == http.StatusOK {
			successes++
			log.Printf("  ✅ %s: %d", url, status)
		} else if err != nil {
			log.Printf("  ❌ %s: %v", url, err)
		} else {
			log.Printf("  ❌ %s: %d", url, status)
		}
	}

	ratio := float64(successes) / float64(len(urls))
	log.Printf("[Connectivity] %d/%d tests passed", successes, len(urls))
	return ratio
}
