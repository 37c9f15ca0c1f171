package ipfs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/omniwallet/nft-engine/env"
	"github.com/omniwallet/nft-engine/util"
)

func init() {
	env.RegisterValidation("IPFS_GATEWAY_URL", "required")
}

const publicGateway = "https://ipfs.io"

// HTTPReader reads IPFS content through an HTTP gateway
type HTTPReader struct {
	Host   string
	Client *http.Client
}

func (r HTTPReader) Do(ctx context.Context, path string) (io.ReadCloser, error) {
	gatewayURL := pathURL(r.Host, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, gatewayURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, util.ErrHTTP{Status: resp.StatusCode, URL: gatewayURL}
	}
	return resp.Body, nil
}

// IPFSReader reads IPFS content through an IPFS API node
type IPFSReader struct {
	Client *shell.Shell
}

func (r IPFSReader) Do(ctx context.Context, path string) (io.ReadCloser, error) {
	return r.Client.Cat(path)
}

// NewShell returns an IPFS shell pointed at the configured API node
func NewShell() *shell.Shell {
	sh := shell.NewShellWithClient(env.GetString(context.Background(), "IPFS_API_URL"), &http.Client{Timeout: 60 * time.Second})
	sh.SetTimeout(60 * time.Second)
	return sh
}

// GetResponse fetches the content behind an IPFS path, trying the configured
// gateway, then the IPFS API node when one is configured, then the public
// gateway. The first reader that succeeds wins.
func GetResponse(ctx context.Context, httpClient *http.Client, path string) (io.ReadCloser, error) {
	fetchers := []func(context.Context) (io.ReadCloser, error){
		func(ctx context.Context) (io.ReadCloser, error) {
			return HTTPReader{Host: env.GetString(ctx, "IPFS_GATEWAY_URL"), Client: httpClient}.Do(ctx, path)
		},
	}
	if env.GetString(ctx, "IPFS_API_URL") != "" {
		fetchers = append(fetchers, func(ctx context.Context) (io.ReadCloser, error) {
			return IPFSReader{Client: NewShell()}.Do(ctx, path)
		})
	}
	fetchers = append(fetchers, func(ctx context.Context) (io.ReadCloser, error) {
		return HTTPReader{Host: publicGateway, Client: httpClient}.Do(ctx, path)
	})

	return util.FirstNonErrorWithValue(ctx, true, nil, fetchers...)
}

// PathFrom strips the content-addressing scheme from an IPFS URI, leaving the
// bare CID path a gateway expects
func PathFrom(uri string) string {
	path := strings.TrimSpace(uri)
	path = strings.TrimPrefix(path, "ipfs://")
	path = strings.TrimPrefix(path, "ipfs/")
	path = strings.TrimPrefix(path, "/")
	return strings.Split(path, "?")[0]
}

// PathGatewayFor returns the path gateway URL for a CID
func PathGatewayFor(gatewayHost, cid string) string {
	return pathURL(gatewayHost, cid)
}

// pathURL returns the gateway URL in path resolution style
func pathURL(host, path string) string {
	return fmt.Sprintf("%s/ipfs/%s", strings.TrimSuffix(host, "/"), path)
}
