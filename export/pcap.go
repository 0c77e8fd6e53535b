package export

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/Zerofisher/kismetdb/pkg/model"
)

// PcapSnapLen is the snapshot length written into pcap file headers.
const PcapSnapLen = 8192

// PcapWriter writes packets rows to a classic pcap stream. The file
// header is written with the link type of the first packet.
type PcapWriter struct {
	out      io.Writer
	writer   *pcapgo.Writer
	mu       sync.Mutex
	count    int
	linkType layers.LinkType
}

// NewPcapWriter creates a pcap writer over w.
func NewPcapWriter(w io.Writer) *PcapWriter {
	return &PcapWriter{out: w}
}

// WriteRow writes the packet carried by a packets row. Rows without
// packet bytes are skipped.
func (w *PcapWriter) WriteRow(row *model.Row) error {
	data := row.Bytes("packet")
	if len(data) == 0 {
		return nil
	}
	dlt, err := row.Int64("dlt")
	if err != nil {
		return fmt.Errorf("read dlt: %w", err)
	}
	sec, err := row.Int64("ts_sec")
	if err != nil {
		return fmt.Errorf("read ts_sec: %w", err)
	}
	usec, _ := row.Int64("ts_usec")
	if dlt < 0 || dlt > 255 {
		// layers.LinkType is a byte
		return fmt.Errorf("link type %d cannot be written", dlt)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.writer == nil {
		w.linkType = layers.LinkType(dlt)
		w.writer = pcapgo.NewWriter(w.out)
		if err := w.writer.WriteFileHeader(PcapSnapLen, w.linkType); err != nil {
			return fmt.Errorf("write pcap header: %w", err)
		}
	}

	ci := gopacket.CaptureInfo{
		Timestamp:     time.Unix(sec, usec*1000).UTC(),
		CaptureLength: len(data),
		Length:        len(data),
	}
	if err := w.writer.WritePacket(ci, data); err != nil {
		return fmt.Errorf("write packet: %w", err)
	}

	w.count++
	return nil
}

// Count returns the number of packets written
func (w *PcapWriter) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// LinkType returns the link type in the file header.
func (w *PcapWriter) LinkType() layers.LinkType {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.linkType
}

// PcapSplitter writes packets into a series of files named
// <title>-<n>.pcap, at most limit packets each. A limit of zero writes a
// single file named title.
type PcapSplitter struct {
	title string
	limit int

	file   *os.File
	cur    *PcapWriter
	files  []string
	total  int
	closed bool
}

// NewPcapSplitter creates a splitter.
func NewPcapSplitter(title string, limit int) *PcapSplitter {
	return &PcapSplitter{title: title, limit: limit}
}

// WriteRow writes one packets row, opening a new file when needed.
func (s *PcapSplitter) WriteRow(row *model.Row) error {
	if s.closed {
		return fmt.Errorf("writer is closed")
	}
	if len(row.Bytes("packet")) == 0 {
		return nil
	}
	if s.cur == nil {
		if err := s.rotate(); err != nil {
			return err
		}
	}
	if err := s.cur.WriteRow(row); err != nil {
		return err
	}
	s.total++
	if s.limit > 0 && s.cur.Count() >= s.limit {
		return s.closeFile()
	}
	return nil
}

func (s *PcapSplitter) rotate() error {
	name := s.title
	if s.limit > 0 {
		name = fmt.Sprintf("%s-%d.pcap", s.title, len(s.files))
	}
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", name, err)
	}
	s.file = f
	s.cur = NewPcapWriter(f)
	s.files = append(s.files, name)
	return nil
}

func (s *PcapSplitter) closeFile() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.cur = nil
	return err
}

// Close closes the current file.
func (s *PcapSplitter) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.closeFile()
}

// Files returns the names of the files written so far.
func (s *PcapSplitter) Files() []string {
	return append([]string(nil), s.files...)
}

// Count returns the number of packets written across all files.
func (s *PcapSplitter) Count() int {
	return s.total
}

// Layers decodes a captured frame and names its layers, outermost
// first. Undecodable frames yield the layers gopacket could parse.
func Layers(dlt int, data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	pkt := gopacket.NewPacket(data, layers.LinkType(dlt), gopacket.NoCopy)
	var out []string
	for _, l := range pkt.Layers() {
		out = append(out, l.LayerType().String())
	}
	if el := pkt.ErrorLayer(); el != nil {
		out = append(out, fmt.Sprintf("[decode error: %v]", el.Error()))
	}
	return out
}
