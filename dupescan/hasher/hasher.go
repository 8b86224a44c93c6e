package hasher

import (
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
)

const (
	// MinChunkSize is the smallest read chunk the hasher accepts.
	MinChunkSize = 4096
	// defaultReadBufferSize is the buffer used when streaming whole files.
	defaultReadBufferSize = 65536
)

// ChunkHasher computes content fingerprints for files. PartialFingerprint
// reads only the first and last chunk of a file and is used as a cheap
// pre-filter; FullFingerprint streams the entire content and is the
// definitive duplicate confirmation. Fingerprints are hex-encoded digests
// and depend only on the file bytes, the algorithm, and the chunk size.
type ChunkHasher struct {
	algorithm      Algorithm
	chunkSize      int64
	readBufferSize int
	// open yields the file content and its stat size. Tests swap it to
	// simulate filesystems that reject backward seeks or truncate files
	// between stat and read.
	open func(path string) (io.ReadSeekCloser, int64, error)
}

// NewChunkHasher creates a ChunkHasher for the given algorithm and chunk
// size. The chunk size must be a power of two and at least MinChunkSize;
// this is normally guaranteed by the config layer, but misuse is rejected
// here with ErrInvalidConfig before any file I/O can happen.
func NewChunkHasher(algorithm Algorithm, chunkSize int) (*ChunkHasher, error) {
	if _, err := algorithm.newDigest(); err != nil {
		return nil, err
	}
	if chunkSize < MinChunkSize || chunkSize&(chunkSize-1) != 0 {
		return nil, fmt.Errorf("%w: chunk size must be a power of two >= %d, got %d",
			ErrInvalidConfig, MinChunkSize, chunkSize)
	}
	readBufferSize := defaultReadBufferSize
	if chunkSize > readBufferSize {
		readBufferSize = chunkSize
	}
	return &ChunkHasher{
		algorithm:      algorithm,
		chunkSize:      int64(chunkSize),
		readBufferSize: readBufferSize,
		open:           openRegular,
	}, nil
}

// PartialFingerprint hashes the first and last chunk of the file at path.
// Files no larger than two chunks are hashed in full, so the partial and
// full fingerprints coincide for small files. If the tail seek fails (some
// network filesystems reject backward seeks) the whole file is streamed
// instead, so a partial fingerprint is still produced.
func (ch *ChunkHasher) PartialFingerprint(path string) (string, error) {
	file, size, err := ch.open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	digest, err := ch.algorithm.newDigest()
	if err != nil {
		return "", err
	}

	if size <= 2*ch.chunkSize {
		if err := ch.stream(digest, file, path); err != nil {
			return "", err
		}
		return hex.EncodeToString(digest.Sum(nil)), nil
	}

	firstChunk := make([]byte, ch.chunkSize)
	n, err := io.ReadFull(file, firstChunk)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		// File was truncated between stat and read; hash what we got.
		digest.Write(firstChunk[:n])
		return hex.EncodeToString(digest.Sum(nil)), nil
	}
	if err != nil {
		return "", classifyIOError("read", path, err)
	}
	digest.Write(firstChunk)

	if _, err := file.Seek(-ch.chunkSize, io.SeekEnd); err != nil {
		// Backward seek unsupported; fall back to hashing the whole file
		// from the start with a fresh digest.
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return "", classifyIOError("seek", path, err)
		}
		digest, err = ch.algorithm.newDigest()
		if err != nil {
			return "", err
		}
		if err := ch.stream(digest, file, path); err != nil {
			return "", err
		}
		return hex.EncodeToString(digest.Sum(nil)), nil
	}

	lastChunk := make([]byte, ch.chunkSize)
	n, err = io.ReadFull(file, lastChunk)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", classifyIOError("read", path, err)
	}
	digest.Write(lastChunk[:n])

	return hex.EncodeToString(digest.Sum(nil)), nil
}

// FullFingerprint hashes the entire content of the file at path, streaming
// it in read-buffer increments so large files are never held in memory.
func (ch *ChunkHasher) FullFingerprint(path string) (string, error) {
	file, _, err := ch.open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	digest, err := ch.algorithm.newDigest()
	if err != nil {
		return "", err
	}
	if err := ch.stream(digest, file, path); err != nil {
		return "", err
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}

// openRegular stats and opens path, mapping failures onto the error
// taxonomy. Directories, symlink targets that are not regular files, and
// other special files are rejected with ErrIOFailure.
func openRegular(path string) (io.ReadSeekCloser, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, classifyIOError("stat", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, 0, fmt.Errorf("%w: not a regular file: %s", ErrIOFailure, path)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, classifyIOError("open", path, err)
	}
	return file, info.Size(), nil
}

func (ch *ChunkHasher) stream(digest hash.Hash, file io.Reader, path string) error {
	buf := make([]byte, ch.readBufferSize)
	if _, err := io.CopyBuffer(digest, file, buf); err != nil {
		return classifyIOError("read", path, err)
	}
	return nil
}
