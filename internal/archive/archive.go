// Package archive compresses the evaluation log and uploads it to Azure
// Blob Storage for long-term retention.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/klauspost/compress/zstd"
)

// Uploader uploads a named blob. Implemented by the Azure client; tests
// substitute their own.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) error
}

// AzureUploader uploads blobs to one container of a storage account using
// the ambient Azure credential chain.
type AzureUploader struct {
	client    *azblob.Client
	container string
}

// NewAzureUploader builds an uploader for the given storage account URL
// (e.g. https://myaccount.blob.core.windows.net) and container.
func NewAzureUploader(accountURL, container string) (*AzureUploader, error) {
	if accountURL == "" || container == "" {
		return nil, errors.New("archive requires both a storage account URL and a container name")
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("acquiring Azure credential: %w", err)
	}

	client, err := azblob.NewClient(accountURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("creating blob client: %w", err)
	}

	return &AzureUploader{client: client, container: container}, nil
}

// Upload writes data as a block blob. Azure service errors are unwrapped to
// a readable message.
func (u *AzureUploader) Upload(ctx context.Context, name string, data []byte) error {
	_, err := u.client.UploadBuffer(ctx, u.container, name, data, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) {
			return fmt.Errorf("uploading blob %s: %s (HTTP %d)", name, respErr.ErrorCode, respErr.StatusCode)
		}
		return fmt.Errorf("uploading blob %s: %w", name, err)
	}
	return nil
}

// Compress returns r's contents compressed with zstd.
func Compress(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("creating zstd writer: %w", err)
	}
	if _, err := io.Copy(enc, r); err != nil {
		enc.Close() //nolint:errcheck
		return nil, fmt.Errorf("compressing: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("flushing zstd writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func Decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating zstd reader: %w", err)
	}
	defer dec.Close()

	out, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decompressing: %w", err)
	}
	return out, nil
}

// BlobName derives the archive blob name for a log file and timestamp,
// e.g. evaluations-20260830T101500Z.jsonl.zst.
func BlobName(logPath string, now time.Time) string {
	base := filepath.Base(logPath)
	ext := filepath.Ext(base)
	stem := base[:len(base)-len(ext)]
	return fmt.Sprintf("%s-%s%s.zst", stem, now.UTC().Format("20060102T150405Z"), ext)
}

// Run compresses the log at logPath and uploads it via the uploader. It
// returns the blob name written.
func Run(ctx context.Context, uploader Uploader, logPath string) (string, error) {
	f, err := os.Open(logPath)
	if err != nil {
		return "", fmt.Errorf("opening evaluation log: %w", err)
	}
	defer f.Close() //nolint:errcheck

	compressed, err := Compress(f)
	if err != nil {
		return "", err
	}

	name := BlobName(logPath, time.Now())
	if err := uploader.Upload(ctx, name, compressed); err != nil {
		return "", err
	}

	slog.Info("archived evaluation log", "blob", name, "bytes", len(compressed))
	return name, nil
}
