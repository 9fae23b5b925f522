package coordinator

import (
	"context"

	"github.com/stitchd/go-auth-broker/internal/utils"
	"github.com/stitchd/go-auth-broker/localserver"
	"github.com/stitchd/go-auth-broker/provider"
)

// localLogin drives the self-contained flow: an ephemeral localhost
// listener receives the provider redirect and the exchange runs in this
// process with the locally-held secret. No broker is involved.
func (c *Coordinator) localLogin(ctx context.Context) (*provider.Credential, error) {
	exchanger, err := provider.NewExchanger(c.opts.Provider, provider.WithHTTPClient(c.opts.HTTPClient))
	if err != nil {
		return nil, err
	}

	nonce := utils.RandomToken(32)
	server, err := localserver.New(c.opts.ListenPort, nonce)
	if err != nil {
		return nil, err
	}
	defer server.Close()

	redirectURI := server.RedirectURI()
	c.openBrowser(exchanger.AuthorizeURL(redirectURI, nonce))

	code, err := server.Wait(ctx, c.opts.LocalWait)
	if err != nil {
		return nil, err
	}

	return exchanger.Exchange(ctx, code, redirectURI)
}
