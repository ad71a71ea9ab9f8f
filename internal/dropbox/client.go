// Package dropbox implements the storage destination for repository
// archives. Small files go up in one call; anything above the simple-upload
// limit is streamed through an upload session in fixed-size chunks.
package dropbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"repovault/internal/logger"
)

const (
	// simpleUploadLimit is the largest payload Dropbox accepts on the
	// single-call upload endpoint.
	simpleUploadLimit = 150 * 1024 * 1024

	// sessionChunkSize is the append size for session uploads.
	sessionChunkSize = 4 * 1024 * 1024
)

// ErrAuth indicates a missing or rejected access token. It is fatal: callers
// abort before any backup work starts.
var ErrAuth = errors.New("invalid dropbox credentials")

// errFolderExists is returned by the api seam when folder creation conflicts
// with an existing path. EnsureFolder folds it into success.
var errFolderExists = errors.New("folder already exists")

// api is the thin seam over the Dropbox SDK so the chunking and idempotence
// logic is unit-testable without network access.
type api interface {
	upload(path string, overwrite bool, content io.Reader) error
	sessionStart(content io.Reader) (sessionID string, err error)
	sessionAppend(sessionID string, offset uint64, content io.Reader) error
	sessionFinish(sessionID string, offset uint64, path string, overwrite bool, content io.Reader) error
	createFolder(path string) error
	metadataExists(path string) (bool, error)
	currentAccount() error
}

// Client uploads archives and manages destination folders.
type Client struct {
	api api
	log logger.Logger

	simpleLimit uint64
	chunkSize   uint64
}

// New builds a client and verifies the token against the account endpoint,
// so credential problems surface before any clone work is done.
func New(token string, log logger.Logger) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: access token is required (set DROPBOX_ACCESS_TOKEN or pass --dropbox-token)", ErrAuth)
	}
	if log == nil {
		log = logger.Nop()
	}

	c := &Client{
		api:         newSDK(token),
		log:         log,
		simpleLimit: simpleUploadLimit,
		chunkSize:   sessionChunkSize,
	}
	if err := c.api.currentAccount(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}
	c.log.Debug("connected to dropbox")
	return c, nil
}

// EnsureFolder creates path if it does not exist. An already-existing folder
// is success, so repeated backups of the same repository are idempotent.
func (c *Client) EnsureFolder(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := c.api.createFolder(path)
	switch {
	case err == nil:
		c.log.Debug("created folder", "path", path)
		return nil
	case errors.Is(err, errFolderExists):
		c.log.Debug("folder already exists", "path", path)
		return nil
	default:
		return fmt.Errorf("create folder %s: %w", path, err)
	}
}

// UploadFile uploads localPath to remotePath. Files above the simple-upload
// limit are sent through an upload session: start, append fixed-size chunks,
// finish with the final chunk and commit metadata.
func (c *Client) UploadFile(ctx context.Context, localPath, remotePath string, overwrite bool) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", localPath, err)
	}
	size := uint64(info.Size())

	if size <= c.simpleLimit {
		if err := c.api.upload(remotePath, overwrite, f); err != nil {
			return fmt.Errorf("upload %s: %w", remotePath, err)
		}
		c.log.Debug("uploaded", "path", remotePath, "bytes", size)
		return nil
	}

	if err := c.uploadSession(ctx, f, size, remotePath, overwrite); err != nil {
		return fmt.Errorf("upload session %s: %w", remotePath, err)
	}
	c.log.Debug("uploaded via session", "path", remotePath, "bytes", size)
	return nil
}

func (c *Client) uploadSession(ctx context.Context, r io.Reader, size uint64, path string, overwrite bool) error {
	sessionID, err := c.api.sessionStart(io.LimitReader(r, int64(c.chunkSize)))
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	offset := min(c.chunkSize, size)

	for size-offset > c.chunkSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.api.sessionAppend(sessionID, offset, io.LimitReader(r, int64(c.chunkSize))); err != nil {
			return fmt.Errorf("append at %d: %w", offset, err)
		}
		offset += c.chunkSize
	}

	if err := c.api.sessionFinish(sessionID, offset, path, overwrite, io.LimitReader(r, int64(size-offset))); err != nil {
		return fmt.Errorf("finish: %w", err)
	}
	return nil
}

// FileExists reports whether a file is already present at path.
func (c *Client) FileExists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return c.api.metadataExists(path)
}
