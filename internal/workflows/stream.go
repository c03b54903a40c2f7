package workflows

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/PolarWolf314/syncany/internal/audit"
	"github.com/PolarWolf314/syncany/internal/configs"
	"github.com/PolarWolf314/syncany/internal/transform"
	"github.com/PolarWolf314/syncany/internal/utils"
)

// StreamOptions configures the encode and decode workflows.
type StreamOptions struct {
	Environment

	// LocalDir is a folder inside an initialized folder. If empty, uses
	// the working directory.
	LocalDir string

	// Name identifies the input in the audit log, e.g. a file name.
	Name string

	// In is read until EOF.
	In io.Reader

	// Out receives the transformed stream.
	Out io.Writer
}

// StreamResult contains the outcome of an encode or decode operation.
type StreamResult struct {
	// Transformer describes the transform chain that was applied.
	Transformer string

	// BytesIn and BytesOut count the bytes read and written.
	BytesIn  int64
	BytesOut int64
}

// Encode runs In through the repository's transform chain and writes the
// result to Out.
//
// Returns ErrNoSigningKey if the repository is signed and this folder was
// connected read-only.
func Encode(ctx context.Context, opts StreamOptions) (*StreamResult, error) {
	repo, err := openRepository(opts.LocalDir)
	if err != nil {
		return nil, err
	}

	in := &countingReader{ctx: ctx, r: opts.In}
	out := &countingWriter{w: opts.Out}

	w, err := repo.chain.Encode(out)
	if err != nil {
		return nil, err
	}
	_, copyErr := io.Copy(w, in)
	if err := errors.Join(copyErr, w.Close()); err != nil {
		return nil, fmt.Errorf("encoding: %w", err)
	}

	repo.log(audit.OpEncode, opts.Name)
	return &StreamResult{Transformer: repo.chain.String(), BytesIn: in.n, BytesOut: out.n}, nil
}

// Decode reverses Encode. Out may already hold data when an integrity
// error is returned, so callers must discard it on error.
//
// Returns ErrSignatureMismatch or ErrDecryptFailed if the input was
// tampered with.
func Decode(ctx context.Context, opts StreamOptions) (*StreamResult, error) {
	repo, err := openRepository(opts.LocalDir)
	if err != nil {
		return nil, err
	}

	in := &countingReader{ctx: ctx, r: opts.In}
	out := &countingWriter{w: opts.Out}

	r, err := repo.chain.Decode(in)
	if err != nil {
		return nil, fmt.Errorf("decoding: %w", err)
	}
	_, copyErr := io.Copy(out, r)
	if err := errors.Join(copyErr, r.Close()); err != nil {
		return nil, fmt.Errorf("decoding: %w", err)
	}

	repo.log(audit.OpDecode, opts.Name)
	return &StreamResult{Transformer: repo.chain.String(), BytesIn: in.n, BytesOut: out.n}, nil
}

// repository is the local state of an initialized folder.
type repository struct {
	dir   configs.AppDir
	cfg   *configs.Config
	repo  *configs.RepoTO
	chain *transform.Chain
}

func openRepository(localDir string) (*repository, error) {
	start, err := utils.ResolveDir(localDir)
	if err != nil {
		return nil, err
	}
	dir, err := configs.FindAppDir(start)
	if err != nil {
		return nil, err
	}
	cfg, err := configs.ReadConfig(dir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(dir.RepoFile())
	if err != nil {
		return nil, fmt.Errorf("reading repository file: %w", err)
	}
	repoTO, verifyKey, err := verifyRepoFile(data, cfg.MasterKey)
	if err != nil {
		return nil, err
	}

	chain, err := transform.Build(repoTO.Transformers, transform.Keys{MasterKey: cfg.MasterKey, VerifyKey: verifyKey})
	if err != nil {
		return nil, err
	}
	return &repository{dir: dir, cfg: cfg, repo: repoTO, chain: chain}, nil
}

func (r *repository) log(op, name string) {
	entry := audit.NewEntry(op, r.cfg)
	entry.RepoID = r.repo.RepoID
	entry.Transformer = r.chain.String()
	entry.File = name
	audit.Log(r.dir, entry)
}

type countingReader struct {
	ctx context.Context
	r   io.Reader
	n   int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// countingWriter never closes the underlying writer; Out belongs to the caller.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func (c *countingWriter) Close() error { return nil }
