package declarations

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

func (s *csvStreamer) writeComment(line string) error {
	if s == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	if !strings.HasSuffix(line, "\r\n") {
		line = strings.TrimSuffix(line, "\n")
		line += "\r\n"
	}
	_, err := s.buf.WriteString(line)
	return err
}

func (s *csvStreamer) writeRow(row []string) error {
	if s == nil || s.csv == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.Flush()
	}
	return nil
}

func (s *csvStreamer) Flush() error {
	if s == nil || s.csv == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

// writeDeclarationsCSV streams the period's declarations as CSV with a
// comment-style metadata preamble.
func writeDeclarationsCSV(w io.Writer, year, month int, rows []Summary, generatedAt time.Time) error {
	streamer := newCSVStreamer(w)
	if err := streamer.writeComment(fmt.Sprintf("# Monthly declarations %d-%02d", year, month)); err != nil {
		return err
	}
	if err := streamer.writeComment("# Generated " + generatedAt.UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	header := []string{"Employee ID", "Employee", "Status", "Days", "Total Minutes", "Total", "Submitted At", "Approved At"}
	if err := streamer.writeRow(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := streamer.writeRow([]string{
			strconv.FormatInt(row.EmployeeID, 10),
			row.EmployeeName,
			string(row.Status),
			strconv.Itoa(row.DayCount),
			strconv.Itoa(row.TotalMinutes),
			FormatMinutes(row.TotalMinutes),
			formatTimestamp(row.SubmittedAt),
			formatTimestamp(row.ApprovedAt),
		}); err != nil {
			return err
		}
	}
	return streamer.Flush()
}

func formatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// Export streams the period's declarations as a CSV download.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	caps, ok := h.capabilities(w, r)
	if !ok {
		return
	}
	year, month, ok := h.queryPeriod(w, r)
	if !ok {
		return
	}
	rows, err := h.service.ExportRows(r.Context(), caps, year, month)
	if err != nil {
		h.respondError(w, err)
		return
	}

	filename := fmt.Sprintf("declarations-%d-%02d.csv", year, month)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := writeDeclarationsCSV(w, year, month, rows, time.Now()); err != nil {
		h.logger.Error("stream declarations csv", "error", err)
	}
}
