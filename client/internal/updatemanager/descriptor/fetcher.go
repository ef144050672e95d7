package descriptor

import (
	"context"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/netbirdio/directupdate/client/internal/updatemanager/downloader"
)

const maxDescriptorSize = 1 << 20

// Fetcher retrieves update descriptors. Concurrent fetches of the same URL share one request.
type Fetcher struct {
	downloader *downloader.Downloader
	group      singleflight.Group
}

func NewFetcher(client *http.Client) *Fetcher {
	return &Fetcher{
		downloader: downloader.New(client, 0),
	}
}

// Fetch performs a single GET against url and combines the descriptor with the installed version code.
// All failures are reported as *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string, app InstalledApp) (*UpdateConfig, error) {
	v, err, shared := f.group.Do(url, func() (interface{}, error) {
		data, err := f.downloader.DownloadToMemory(ctx, url, maxDescriptorSize)
		if err != nil {
			return nil, err
		}
		return Parse(data)
	})
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	if shared {
		log.Tracef("update config request for %s was shared", url)
	}

	// copy, the shared value must stay untouched
	cfg := v.(UpdateConfig)

	current, err := app.VersionCode(ctx)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("read installed version: %w", err)}
	}
	cfg.CurrentVersionCode = current

	log.Debugf("fetched update config for %s: remote %d (%s), installed %d",
		cfg.AppName, cfg.VersionCode, cfg.DisplayVersion(), cfg.CurrentVersionCode)

	return &cfg, nil
}
