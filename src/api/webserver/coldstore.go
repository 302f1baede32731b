package webserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"time"

	"github.com/jagnani73/daoscape-sub001/src/api/types"
	"github.com/jagnani73/daoscape-sub001/src/webclient"
)

// shipToColdStorage archives a concluded proposal. Runs detached from the
// request; delivery is best effort and failures only get logged.
func shipToColdStorage(url string, proposal types.Proposal) {
	if url == "" {
		return
	}

	body, err := json.Marshal(proposal)
	if err != nil {
		log.Printf("cold storage: marshal proposal %s: %v", proposal.ID, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := webclient.NewDefault(0)
	status, _, err := webclient.DoWithRetry(ctx, 3, 2*time.Second, func() (int, []byte, error) {
		resp, err := client.Post(url, "application/json", bytes.NewReader(body))
		if err != nil {
			return 0, nil, err
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, b, nil
	})
	if err != nil || status >= 300 {
		log.Printf("cold storage: ship proposal %s failed (status %d): %v", proposal.ID, status, err)
	}
}
