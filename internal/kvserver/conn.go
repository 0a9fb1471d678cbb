package kvserver

import (
	"bufio"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"

	"github.com/joshuapassos/shardkv/pkg/kvstore"
)

// store is the subset of *kvstore.Store the wire protocol needs. Defining it
// here (rather than depending on the concrete type directly in tests) keeps
// conn_test.go free of a real mmap-backed store.
type store interface {
	Put(key, value []byte) error
	Get(key []byte) ([]byte, bool, error)
	Delete(key []byte) error
	Len() int
	Stats() []kvstore.ShardStats
}

// maxLineSize is the size of each connection's read buffer. It does not
// limit the length of a request line: ReadBytes keeps reading past a full
// buffer until it finds the delimiter. Key length is checked by the store
// (MaxKeySize), not here.
const maxLineSize = 1 << 20

// handleConn serves one client connection until it disconnects or ctx-like
// cancellation happens via closing conn from the caller. Each request line
// is dispatched independently; a malformed line is answered with the error
// response and the connection stays open for the next line.
func handleConn(conn net.Conn, st store, logger *zap.Logger) {
	defer func() { _ = conn.Close() }()

	reader := bufio.NewReaderSize(conn, maxLineSize)

	for {
		line, err := reader.ReadBytes(delimiter)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				logger.Debug("connection closed", zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
			}

			return
		}

		line = line[:len(line)-1] // strip the trailing delimiter

		resp := dispatch(line, st, logger)

		resp = append(resp, delimiter)

		if _, err := conn.Write(resp); err != nil {
			logger.Debug("write failed, closing connection", zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))

			return
		}
	}
}

// dispatch parses and executes one request line, returning the bytes to
// send back (without the trailing delimiter).
func dispatch(line []byte, st store, logger *zap.Logger) []byte {
	req, err := parseRequest(line)
	if err != nil {
		logger.Debug("malformed request", zap.Error(err))

		return errResponse
	}

	switch req.cmd {
	case cmdRead:
		value, ok, err := st.Get(req.key)
		if err != nil || !ok {
			return errResponse
		}

		return value

	case cmdWrite:
		if err := st.Put(req.key, req.value); err != nil {
			return errResponse
		}

		return nil

	case cmdDelete:
		if err := st.Delete(req.key); err != nil {
			return errResponse
		}

		return nil

	case cmdStatus:
		return []byte(formatStatus(st.Stats()))

	case cmdKeys:
		return []byte(fmt.Sprintf("%d", st.Len()))

	default:
		return errResponse
	}
}

// formatStatus renders per-shard bookkeeping as a compact one-line summary
// derived from data the core already tracks.
func formatStatus(stats []kvstore.ShardStats) string {
	out := ""

	for i, s := range stats {
		if i > 0 {
			out += ";"
		}

		out += fmt.Sprintf("shard=%d keys=%d live=%d offset_free=%d total_size=%d",
			s.Shard, s.Keys, s.LiveKeys, s.OffsetFree, s.TotalSize)
	}

	return out
}
