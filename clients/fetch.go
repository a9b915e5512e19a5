package clients

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/reelforge/reelforge-api/config"
	xerrors "github.com/reelforge/reelforge-api/errors"
	"github.com/reelforge/reelforge-api/log"
)

const (
	fetchChunkSize    = 8 * 1024
	progressLogEvery  = 10 * 1024 * 1024
	maxDownloadTime   = 10 * time.Minute
	defaultSourceName = "source.mp4"
)

// BlobFetcher downloads source media by URL into the per-media temp cache and
// assembles chunked uploads. It does not retry transport errors; the job
// runner owns retries.
type BlobFetcher struct {
	StorageRoot string
	httpClient  *http.Client
}

func NewBlobFetcher(storageRoot string) *BlobFetcher {
	return &BlobFetcher{
		StorageRoot: storageRoot,
		httpClient:  &http.Client{Timeout: maxDownloadTime},
	}
}

// Fetch returns a local path for the given URL, downloading it if the cache
// under temp/<mediaID> does not already hold it. Direct file paths are
// returned as-is when they exist.
func (f *BlobFetcher) Fetch(requestID, rawURL, mediaID, filename string) (string, error) {
	u, err := url.Parse(rawURL)
	if err == nil && (u.Scheme == "" || u.Scheme == "file") {
		p := rawURL
		if u.Scheme == "file" {
			p = u.Path
		}
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
		return "", xerrors.Wrap(xerrors.KindNotFound, fmt.Errorf("local file does not exist: %s", p))
	}
	if err != nil {
		return "", xerrors.Wrap(xerrors.KindInvalidInput, fmt.Errorf("invalid source url %q: %w", rawURL, err))
	}

	if filename == "" {
		filename = path.Base(u.Path)
		if filename == "" || filename == "." || filename == "/" {
			filename = defaultSourceName
		}
	}

	dir := config.TempDir(f.StorageRoot, mediaID)
	target := filepath.Join(dir, filename)
	if _, err := os.Stat(target); err == nil {
		log.Log(requestID, "fetch cache hit", "media_id", mediaID, "path", target)
		return target, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("error creating cache dir for %s: %w", mediaID, err)
	}

	resp, err := f.httpClient.Get(rawURL)
	if err != nil {
		return "", xerrors.Wrap(xerrors.KindDependencyFailure, fmt.Errorf("error fetching %q: %w", rawURL, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", xerrors.Wrap(xerrors.KindDependencyFailure, fmt.Errorf("error fetching %q: http status %d", rawURL, resp.StatusCode))
	}

	// Download to a partial file and rename once complete, so concurrent jobs
	// sharing the cache path never observe a half-downloaded file.
	partial := target + ".part"
	out, err := os.Create(partial)
	if err != nil {
		return "", fmt.Errorf("error creating %s: %w", partial, err)
	}

	var written, lastLogged int64
	buf := make([]byte, fetchChunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				out.Close()
				return "", fmt.Errorf("error writing %s: %w", partial, writeErr)
			}
			written += int64(n)
			if written-lastLogged >= progressLogEvery {
				log.Log(requestID, "download progress", "media_id", mediaID, "bytes", written)
				lastLogged = written
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			out.Close()
			return "", xerrors.Wrap(xerrors.KindDependencyFailure, fmt.Errorf("error downloading %q: %w", rawURL, readErr))
		}
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("error closing %s: %w", partial, err)
	}
	if err := os.Rename(partial, target); err != nil {
		return "", fmt.Errorf("error finalizing %s: %w", target, err)
	}

	log.Log(requestID, "download complete", "media_id", mediaID, "bytes", written, "path", target)
	return target, nil
}

func (f *BlobFetcher) chunkDir(mediaID string) string {
	return filepath.Join(config.TempDir(f.StorageRoot, mediaID), "chunks")
}

// SaveChunk persists one chunk of a chunked upload alongside its MD5, which
// Assemble later verifies.
func (f *BlobFetcher) SaveChunk(mediaID string, chunkNum int, data []byte) error {
	dir := f.chunkDir(mediaID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating chunk dir for %s: %w", mediaID, err)
	}
	chunkPath := filepath.Join(dir, fmt.Sprintf("chunk_%04d", chunkNum))
	if err := os.WriteFile(chunkPath, data, 0644); err != nil {
		return fmt.Errorf("error writing chunk %d for %s: %w", chunkNum, mediaID, err)
	}
	sum := md5.Sum(data)
	if err := os.WriteFile(chunkPath+".md5", []byte(hex.EncodeToString(sum[:])), 0644); err != nil {
		return fmt.Errorf("error writing chunk checksum %d for %s: %w", chunkNum, mediaID, err)
	}
	return nil
}

// Assemble concatenates chunks 0..totalChunks-1 into uploads/<mediaID>/<filename>
// after verifying each chunk's MD5, then deletes the chunk directory.
func (f *BlobFetcher) Assemble(mediaID string, totalChunks int, filename string) (string, error) {
	if filename == "" {
		filename = defaultSourceName
	}
	dir := f.chunkDir(mediaID)
	outDir := config.UploadDir(f.StorageRoot, mediaID)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("error creating upload dir for %s: %w", mediaID, err)
	}
	outPath := filepath.Join(outDir, filename)
	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("error creating %s: %w", outPath, err)
	}
	defer out.Close()

	for i := 0; i < totalChunks; i++ {
		chunkPath := filepath.Join(dir, fmt.Sprintf("chunk_%04d", i))
		data, err := os.ReadFile(chunkPath)
		if err != nil {
			return "", xerrors.Wrap(xerrors.KindInvalidInput, fmt.Errorf("missing chunk %d of %d for %s: %w", i, totalChunks, mediaID, err))
		}
		expected, err := os.ReadFile(chunkPath + ".md5")
		if err != nil {
			return "", fmt.Errorf("missing checksum for chunk %d of %s: %w", i, mediaID, err)
		}
		sum := md5.Sum(data)
		if hex.EncodeToString(sum[:]) != string(expected) {
			return "", xerrors.Wrap(xerrors.KindInvalidInput, fmt.Errorf("checksum mismatch on chunk %d of %s", i, mediaID))
		}
		if _, err := out.Write(data); err != nil {
			return "", fmt.Errorf("error writing assembled file for %s: %w", mediaID, err)
		}
	}
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("error removing chunk dir for %s: %w", mediaID, err)
	}
	return outPath, nil
}

// FileMD5 hashes a file's bytes, recorded on the media descriptor once known.
func FileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
