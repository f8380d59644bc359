package restic

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"bt-restic/internal/bt"
)

// message is one line of restic's --json output. Only the fields bt reads
// are decoded.
type message struct {
	MessageType string `json:"message_type"`
	StructType  string `json:"struct_type"`

	// status
	PercentDone  float64  `json:"percent_done"`
	TotalFiles   int      `json:"total_files"`
	FilesDone    int      `json:"files_done"`
	TotalBytes   int64    `json:"total_bytes"`
	BytesDone    int64    `json:"bytes_done"`
	CurrentFiles []string `json:"current_files"`

	// error
	Error  json.RawMessage `json:"error"`
	During string          `json:"during"`
	Item   string          `json:"item"`
}

// errorText extracts the message of an error line. restic writes either an
// object with a "message" field or a bare string.
func (m *message) errorText() string {
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(m.Error, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	var s string
	if err := json.Unmarshal(m.Error, &s); err == nil {
		return s
	}
	return string(m.Error)
}

// parseBackup reads the JSON lines of a backup run. Status lines go to
// logger at debug level and error lines at warn level. The summary line is
// returned; ErrNoOutput if there is none.
func parseBackup(r io.Reader, logger bt.Logger) (*bt.BackupSummary, error) {
	var summary *bt.BackupSummary

	err := eachLine(r, func(line []byte) error {
		var msg message
		if err := json.Unmarshal(line, &msg); err != nil {
			// restic prints some notices as plain text even in JSON mode.
			logger.Debug("restic", "output", string(line))
			return nil
		}

		switch msg.MessageType {
		case "status":
			logger.Debug("backup progress",
				"percent", fmt.Sprintf("%.1f", msg.PercentDone*100),
				"files", fmt.Sprintf("%d/%d", msg.FilesDone, msg.TotalFiles),
				"bytes", fmt.Sprintf("%d/%d", msg.BytesDone, msg.TotalBytes),
			)
		case "error":
			logger.Warn("restic could not back up item", "item", msg.Item, "during", msg.During, "error", msg.errorText())
		case "summary":
			var s bt.BackupSummary
			if err := json.Unmarshal(line, &s); err != nil {
				return fmt.Errorf("decoding backup summary: %w", err)
			}
			summary = &s
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if summary == nil {
		return nil, ErrNoOutput
	}
	return summary, nil
}

// parseSnapshots decodes the JSON array printed by `restic --json snapshots`.
func parseSnapshots(data []byte) ([]*bt.Snapshot, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrNoOutput
	}

	var snapshots []*bt.Snapshot
	if err := json.Unmarshal(data, &snapshots); err != nil {
		return nil, fmt.Errorf("decoding snapshots: %w", err)
	}
	return snapshots, nil
}

// parseLs decodes the JSON lines printed by `restic --json ls`: one snapshot
// line followed by one line per node.
func parseLs(r io.Reader) ([]*bt.Node, error) {
	var (
		nodes    []*bt.Node
		sawLines bool
	)

	err := eachLine(r, func(line []byte) error {
		sawLines = true

		var msg message
		if err := json.Unmarshal(line, &msg); err != nil {
			return fmt.Errorf("decoding ls output: %w", err)
		}
		if msg.StructType != "node" && msg.MessageType != "node" {
			return nil
		}

		var n bt.Node
		if err := json.Unmarshal(line, &n); err != nil {
			return fmt.Errorf("decoding node: %w", err)
		}
		nodes = append(nodes, &n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !sawLines {
		return nil, ErrNoOutput
	}
	return nodes, nil
}

func eachLine(r io.Reader, fn func(line []byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading restic output: %w", err)
	}
	return nil
}
