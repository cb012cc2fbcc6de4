// Package script persists the prepared command sequence of a run as an
// append-only log, one snappy-compressed, checksummed entry per command.
// A script written before execution is the durable record of exactly what
// the rig was asked to do, and can be replayed or exported afterwards.
package script

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sync"
	"time"

	"github.com/golang/snappy"

	"github.com/labforge/synthrig/pkg/steps"
)

// Entry layout on disk: [Seq:8][Kind:2][DataLen:4][Data:N][Checksum:4][Timestamp:8].
// Data is the snappy-compressed JSON of the command struct; the checksum
// covers the compressed bytes. Entry 0 is the header, kind 0, carrying the
// run metadata.
type Entry struct {
	Seq       uint64
	Kind      steps.Kind
	Data      []byte
	Checksum  uint32
	Timestamp int64
}

// header is the payload of entry 0.
type header struct {
	Version int    `json:"version"`
	RunID   string `json:"run_id"`
}

const formatVersion = 1

// Writer appends commands to a script file.
type Writer struct {
	file   *os.File
	writer *bufio.Writer
	seq    uint64
	mu     sync.Mutex

	entries         uint64
	bytesRaw        uint64
	bytesCompressed uint64
}

// NewWriter creates the script file, truncating any previous one, and
// writes the header entry.
func NewWriter(path, runID string) (*Writer, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("create script: %w", err)
	}
	w := &Writer{file: file, writer: bufio.NewWriter(file)}

	hdr, err := json.Marshal(header{Version: formatVersion, RunID: runID})
	if err != nil {
		return nil, err
	}
	if err := w.writeEntry(0, hdr); err != nil {
		file.Close()
		return nil, err
	}
	return w, nil
}

// Append writes one command and returns its sequence number.
func (w *Writer) Append(cmd steps.Primitive) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := json.Marshal(cmd)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", cmd.Kind(), err)
	}
	w.seq++
	if err := w.writeEntry(cmd.Kind(), data); err != nil {
		return 0, err
	}
	return w.seq, nil
}

// AppendAll writes the whole command sequence in order.
func (w *Writer) AppendAll(cmds []steps.Primitive) error {
	for _, cmd := range cmds {
		if _, err := w.Append(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeEntry(kind steps.Kind, data []byte) error {
	compressed := snappy.Encode(nil, data)

	w.entries++
	w.bytesRaw += uint64(len(data))
	w.bytesCompressed += uint64(len(compressed))

	if err := binary.Write(w.writer, binary.BigEndian, w.seq); err != nil {
		return err
	}
	if err := binary.Write(w.writer, binary.BigEndian, uint16(kind)); err != nil {
		return err
	}
	if err := binary.Write(w.writer, binary.BigEndian, uint32(len(compressed))); err != nil {
		return err
	}
	if _, err := w.writer.Write(compressed); err != nil {
		return err
	}
	if err := binary.Write(w.writer, binary.BigEndian, crc32.ChecksumIEEE(compressed)); err != nil {
		return err
	}
	return binary.Write(w.writer, binary.BigEndian, time.Now().Unix())
}

// Flush pushes buffered entries to disk.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.writer.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close flushes and closes the script file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.writer.Flush(); err != nil {
		return err
	}
	if err := w.file.Sync(); err != nil {
		return err
	}
	return w.file.Close()
}

// Stats holds compression statistics for a written script.
type Stats struct {
	Entries         uint64
	BytesRaw        uint64
	BytesCompressed uint64
	SpaceSavings    float64 // fraction saved, 0.75 means 75% smaller
}

func (w *Writer) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := Stats{
		Entries:         w.entries,
		BytesRaw:        w.bytesRaw,
		BytesCompressed: w.bytesCompressed,
	}
	if w.bytesRaw > 0 {
		s.SpaceSavings = 1.0 - float64(w.bytesCompressed)/float64(w.bytesRaw)
	}
	return s
}

// Script is a fully read script file.
type Script struct {
	RunID    string
	Commands []steps.Primitive
	Entries  []Entry
}

// Read loads and verifies a script file. Every entry's checksum is checked
// before the payload is decoded; a mismatch fails the whole read, a script
// is only trustworthy in full.
func Read(path string) (*Script, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	s := &Script{}
	for {
		entry, data, err := readEntry(reader)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if entry.Kind == steps.KindInvalid {
			var hdr header
			if err := json.Unmarshal(data, &hdr); err != nil {
				return nil, fmt.Errorf("bad script header: %w", err)
			}
			if hdr.Version != formatVersion {
				return nil, fmt.Errorf("unsupported script version %d", hdr.Version)
			}
			s.RunID = hdr.RunID
			s.Entries = append(s.Entries, *entry)
			continue
		}
		cmd, err := decodeCommand(entry.Kind, data)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", entry.Seq, err)
		}
		entry.Data = data
		s.Entries = append(s.Entries, *entry)
		s.Commands = append(s.Commands, cmd)
	}
	if s.RunID == "" {
		return nil, fmt.Errorf("script has no header")
	}
	return s, nil
}

func readEntry(reader *bufio.Reader) (*Entry, []byte, error) {
	entry := &Entry{}
	if err := binary.Read(reader, binary.BigEndian, &entry.Seq); err != nil {
		return nil, nil, err
	}
	var kind uint16
	if err := binary.Read(reader, binary.BigEndian, &kind); err != nil {
		return nil, nil, corrupt(err)
	}
	entry.Kind = steps.Kind(kind)

	var dataLen uint32
	if err := binary.Read(reader, binary.BigEndian, &dataLen); err != nil {
		return nil, nil, corrupt(err)
	}
	compressed := make([]byte, dataLen)
	if _, err := io.ReadFull(reader, compressed); err != nil {
		return nil, nil, corrupt(err)
	}
	if err := binary.Read(reader, binary.BigEndian, &entry.Checksum); err != nil {
		return nil, nil, corrupt(err)
	}
	if crc32.ChecksumIEEE(compressed) != entry.Checksum {
		return nil, nil, fmt.Errorf("checksum mismatch at entry %d", entry.Seq)
	}
	if err := binary.Read(reader, binary.BigEndian, &entry.Timestamp); err != nil {
		return nil, nil, corrupt(err)
	}

	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, nil, fmt.Errorf("decompress entry %d: %w", entry.Seq, err)
	}
	return entry, data, nil
}

func corrupt(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("truncated script entry")
	}
	return err
}

// commandTypes maps each primitive kind to its concrete zero value for
// decoding. SeparatePhases is included: it executes as a single command
// even though structurally it sits with the composites.
var commandTypes = map[steps.Kind]func() steps.Primitive{
	steps.KindCmdMove:                 func() steps.Primitive { return &steps.CmdMove{} },
	steps.KindCmdConnect:              func() steps.Primitive { return &steps.CmdConnect{} },
	steps.KindCmdWait:                 func() steps.Primitive { return &steps.CmdWait{} },
	steps.KindCmdConfirm:              func() steps.Primitive { return &steps.CmdConfirm{} },
	steps.KindCmdSetStirRate:          func() steps.Primitive { return &steps.CmdSetStirRate{} },
	steps.KindCmdStartStir:            func() steps.Primitive { return &steps.CmdStartStir{} },
	steps.KindCmdStopStir:             func() steps.Primitive { return &steps.CmdStopStir{} },
	steps.KindCmdHeaterSetTemp:        func() steps.Primitive { return &steps.CmdHeaterSetTemp{} },
	steps.KindCmdHeaterStart:          func() steps.Primitive { return &steps.CmdHeaterStart{} },
	steps.KindCmdHeaterStop:           func() steps.Primitive { return &steps.CmdHeaterStop{} },
	steps.KindCmdHeaterWaitForTemp:    func() steps.Primitive { return &steps.CmdHeaterWaitForTemp{} },
	steps.KindCmdChillerSetTemp:       func() steps.Primitive { return &steps.CmdChillerSetTemp{} },
	steps.KindCmdChillerStart:         func() steps.Primitive { return &steps.CmdChillerStart{} },
	steps.KindCmdChillerStop:          func() steps.Primitive { return &steps.CmdChillerStop{} },
	steps.KindCmdChillerWaitForTemp:   func() steps.Primitive { return &steps.CmdChillerWaitForTemp{} },
	steps.KindCmdSetVacuum:            func() steps.Primitive { return &steps.CmdSetVacuum{} },
	steps.KindCmdStartVacuum:          func() steps.Primitive { return &steps.CmdStartVacuum{} },
	steps.KindCmdStopVacuum:           func() steps.Primitive { return &steps.CmdStopVacuum{} },
	steps.KindCmdVentVacuum:           func() steps.Primitive { return &steps.CmdVentVacuum{} },
	steps.KindCmdValveMove:            func() steps.Primitive { return &steps.CmdValveMove{} },
	steps.KindCmdSwitchVacuum:         func() steps.Primitive { return &steps.CmdSwitchVacuum{} },
	steps.KindCmdSwitchArgon:          func() steps.Primitive { return &steps.CmdSwitchArgon{} },
	steps.KindCmdRotavapSetRotation:   func() steps.Primitive { return &steps.CmdRotavapSetRotation{} },
	steps.KindCmdRotavapStartRotation: func() steps.Primitive { return &steps.CmdRotavapStartRotation{} },
	steps.KindCmdRotavapStopRotation:  func() steps.Primitive { return &steps.CmdRotavapStopRotation{} },
	steps.KindCmdRotavapSetTemp:       func() steps.Primitive { return &steps.CmdRotavapSetTemp{} },
	steps.KindCmdRotavapStartHeater:   func() steps.Primitive { return &steps.CmdRotavapStartHeater{} },
	steps.KindCmdRotavapStopHeater:    func() steps.Primitive { return &steps.CmdRotavapStopHeater{} },
	steps.KindCmdRotavapLift:          func() steps.Primitive { return &steps.CmdRotavapLift{} },
	steps.KindSeparatePhases:          func() steps.Primitive { return &steps.SeparatePhases{} },
}

func decodeCommand(kind steps.Kind, data []byte) (steps.Primitive, error) {
	build, ok := commandTypes[kind]
	if !ok {
		return nil, fmt.Errorf("unknown command kind %d", kind)
	}
	cmd := build()
	if err := json.Unmarshal(data, cmd); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return cmd, nil
}
