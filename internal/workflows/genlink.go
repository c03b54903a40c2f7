package workflows

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/syncany/internal/audit"
	"github.com/PolarWolf314/syncany/internal/link"
)

// GenLinkOptions configures the genlink workflow.
type GenLinkOptions struct {
	Environment

	// LocalDir is a folder inside an initialized folder. If empty, uses
	// the working directory.
	LocalDir string
}

// GenLinkResult contains the outcome of a genlink operation.
type GenLinkResult struct {
	// Link is the shareable repository link.
	Link string

	// Encrypted indicates whether the link is encrypted.
	Encrypted bool
}

// GenLink produces a link for the repository of an initialized folder.
// Encrypted repositories get an encrypted link, using the cipher suite of
// the repository's cipher stage.
//
// Returns ErrNotInitialized if no initialized folder is found.
func GenLink(ctx context.Context, opts GenLinkOptions) (*GenLinkResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	repo, err := openRepository(opts.LocalDir)
	if err != nil {
		return nil, err
	}

	suite, err := repoCipherSuite(repo.repo)
	if err != nil {
		return nil, err
	}
	shareLink, err := link.Encode(repo.cfg.Connection, suite, repo.cfg.MasterKey)
	if err != nil {
		return nil, fmt.Errorf("generating link: %w", err)
	}

	entry := audit.NewEntry(audit.OpGenLink, repo.cfg)
	entry.RepoID = repo.repo.RepoID
	entry.Encrypted = repo.cfg.MasterKey != nil
	audit.Log(repo.dir, entry)

	return &GenLinkResult{
		Link:      shareLink,
		Encrypted: repo.cfg.MasterKey != nil,
	}, nil
}
