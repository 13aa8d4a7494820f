package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ethsweep/ethsweep/internal/common"
)

// Stream selects which columns of an IntervalSummary a file carries. The
// extraction pipeline appends whale and validator rows to separate files, the
// orchestrator's merge step joins them into the merged stream.
type Stream string

const (
	StreamWhale     Stream = "whale"
	StreamValidator Stream = "validator"
	StreamMerged    Stream = "merged"
)

// rowTimeLayout keeps second precision so fractional span lengths round-trip.
const rowTimeLayout = "2006-01-02 15:04:05"

var keyColumns = []string{"interval_start", "interval_end"}

func (s Stream) Header() []string {
	whale := []string{"whale_count", "whale_total_value", "whale_avg_value"}
	validator := []string{"validator_count", "validator_total_value", "validator_avg_value", "validator_avg_gas_price"}
	switch s {
	case StreamWhale:
		return append(append([]string{}, keyColumns...), whale...)
	case StreamValidator:
		return append(append([]string{}, keyColumns...), validator...)
	default:
		return append(append(append([]string{}, keyColumns...), whale...), validator...)
	}
}

func (s Stream) row(summary common.IntervalSummary) []string {
	row := []string{
		summary.IntervalStart.Format(rowTimeLayout),
		summary.IntervalEnd.Format(rowTimeLayout),
	}
	if s == StreamWhale || s == StreamMerged {
		row = append(row,
			strconv.FormatUint(summary.WhaleCount, 10),
			formatFloat(summary.WhaleTotalValue),
			formatFloat(summary.WhaleAvgValue),
		)
	}
	if s == StreamValidator || s == StreamMerged {
		row = append(row,
			strconv.FormatUint(summary.ValidatorCount, 10),
			formatFloat(summary.ValidatorTotalValue),
			formatFloat(summary.ValidatorAvgValue),
			formatFloat(summary.ValidatorAvgGasPrice),
		)
	}
	return row
}

// SummaryWriter appends one row per summary to a delimited-text file. The
// header is written once when the file is created; every Append flushes, so
// partial progress survives a crash of the producing process.
type SummaryWriter struct {
	file   *os.File
	writer *csv.Writer
	stream Stream
}

func NewSummaryWriter(path string, stream Stream) (*SummaryWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %v", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open summary file %s: %v", path, err)
	}

	w := &SummaryWriter{
		file:   file,
		writer: csv.NewWriter(file),
		stream: stream,
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.Size() == 0 {
		if err := w.writer.Write(stream.Header()); err != nil {
			file.Close()
			return nil, err
		}
		w.writer.Flush()
		if err := w.writer.Error(); err != nil {
			file.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *SummaryWriter) Append(summary common.IntervalSummary) error {
	if err := w.writer.Write(w.stream.row(summary)); err != nil {
		return err
	}
	w.writer.Flush()
	return w.writer.Error()
}

func (w *SummaryWriter) Close() error {
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// ReadSummaryFile loads every well-formed row of a summary file. Rows with
// fewer columns than the stream's header are skipped.
func ReadSummaryFile(path string, stream Stream) ([]common.IntervalSummary, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read summary file %s: %v", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	width := len(stream.Header())
	summaries := make([]common.IntervalSummary, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) < width {
			continue
		}
		summary, err := parseRow(record, stream)
		if err != nil {
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func parseRow(record []string, stream Stream) (common.IntervalSummary, error) {
	var summary common.IntervalSummary
	start, err := time.ParseInLocation(rowTimeLayout, record[0], time.UTC)
	if err != nil {
		return summary, err
	}
	end, err := time.ParseInLocation(rowTimeLayout, record[1], time.UTC)
	if err != nil {
		return summary, err
	}
	summary.IntervalStart, summary.IntervalEnd = start, end

	next := 2
	if stream == StreamWhale || stream == StreamMerged {
		summary.WhaleCount, _ = strconv.ParseUint(record[next], 10, 64)
		summary.WhaleTotalValue, _ = strconv.ParseFloat(record[next+1], 64)
		summary.WhaleAvgValue, _ = strconv.ParseFloat(record[next+2], 64)
		next += 3
	}
	if stream == StreamValidator || stream == StreamMerged {
		summary.ValidatorCount, _ = strconv.ParseUint(record[next], 10, 64)
		summary.ValidatorTotalValue, _ = strconv.ParseFloat(record[next+1], 64)
		summary.ValidatorAvgValue, _ = strconv.ParseFloat(record[next+2], 64)
		summary.ValidatorAvgGasPrice, _ = strconv.ParseFloat(record[next+3], 64)
	}
	return summary, nil
}

// WriteMerged writes the merged stream from scratch, replacing any previous
// aggregate at path.
func WriteMerged(path string, summaries []common.IntervalSummary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(StreamMerged.Header()); err != nil {
		return err
	}
	for _, summary := range summaries {
		if err := writer.Write(StreamMerged.row(summary)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// RepairFile truncates any row carrying more columns than the file's header
// and rewrites the file in place. Returns the number of rows repaired.
func RepairFile(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	file.Close()
	if err != nil {
		return 0, fmt.Errorf("failed to read %s for repair: %v", path, err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	width := len(records[0])
	repaired := 0
	for i, record := range records {
		if len(record) > width {
			records[i] = record[:width]
			repaired++
		}
	}
	if repaired == 0 {
		return 0, nil
	}

	out, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer out.Close()
	writer := csv.NewWriter(out)
	if err := writer.WriteAll(records); err != nil {
		return 0, err
	}
	return repaired, writer.Error()
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
