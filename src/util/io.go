package util

import (
	"bufio"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"strings"
	"sync"
	"time"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Pump is a buffered, channel-backed output sink: one goroutine owns the
// underlying file/stdout handle and every worker writes through a Writer
// obtained from NewWriter, so concurrent per-function output never races
// on the destination. The driver instantiates one Pump per output file
// (".asm" text, ".bin" binary words) rather than sharing a single global
// pair of channels the way the teacher's package-level wc/cc did.
type Pump struct {
	wc chan string
	cc chan error
	wg sync.WaitGroup
}

// Writer buffers output from one worker in a strings.Builder. Flush sends
// the buffer to the owning Pump; Close flushes and releases the worker's
// slot in the Pump's WaitGroup. Binary output is pushed through the same
// string-of-bytes channel as text output: a Go string holds an arbitrary
// byte sequence, so one Pump/Writer shape serves both destinations.
type Writer struct {
	sb strings.Builder
	p  *Pump
}

// ---------------------
// ----- Functions -----
// ---------------------

// Write writes a format string to the Writer's buffer.
func (w *Writer) Write(format string, args ...interface{}) {
	w.sb.WriteString(fmt.Sprintf(format, args...))
}

// WriteString writes a plain string to the Writer's buffer.
func (w *Writer) WriteString(s string) {
	w.sb.WriteString(s)
}

// WriteBytes appends raw bytes to the Writer's buffer, used for the .bin
// output's big-endian instruction words.
func (w *Writer) WriteBytes(b []byte) {
	w.sb.Write(b)
}

// Flush empties the Writer's buffer and sends the buffer data to the
// owning Pump.
func (w *Writer) Flush() {
	w.p.wc <- w.sb.String()
	w.sb = strings.Builder{}
}

// Close flushes the Writer's buffer and releases its slot in the Pump.
func (w *Writer) Close() {
	w.Flush()
	w.p.wg.Done()
}

// NewWriter returns a new Writer bound to p, to be used by a worker thread
// to write to p's output concurrently with other workers. Must not be
// called before the Pump's Listen method has run.
func (p *Pump) NewWriter() Writer {
	p.wg.Add(1)
	return Writer{p: p}
}

// NewPump allocates a Pump sized for threads concurrent writers.
func NewPump(threads int) *Pump {
	size := 1
	if threads > 1 {
		size = threads + 1
	}
	return &Pump{
		wc: make(chan string, size),
		cc: make(chan error, 1),
	}
}

// Listen starts the Pump's single writer goroutine, which drains wc to f
// (or stdout if f is nil) until Close is called.
func (p *Pump) Listen(f *os.File) {
	var w *bufio.Writer
	if f != nil {
		w = bufio.NewWriter(f)
	} else {
		w = bufio.NewWriter(os.Stdout)
	}

	go func() {
		defer close(p.wc)
		defer close(p.cc)
		for {
			select {
			case s := <-p.wc:
				if _, err := w.WriteString(s); err != nil {
					fmt.Println(err)
				}
				if err := w.Flush(); err != nil {
					fmt.Println(err)
				}
			case <-p.cc:
				return
			}
		}
	}()
}

// Close sends the termination signal to the Pump's writer goroutine after
// every outstanding Writer has called its own Close.
func (p *Pump) Close() {
	p.wg.Wait()
	p.cc <- nil
}

// ReadSource reads source code from file or stdin. If the Options
// structure holds a string for source the file will be opened and read.
// Else the function waits for a short period for input on stdin. If no
// input on stdin is provided the function returns an error.
func ReadSource(opt Options) (string, error) {
	if len(opt.Src) > 0 {
		b, err := ioutil.ReadFile(opt.Src)
		return string(b), err
	}

	c := make(chan string)
	cerr := make(chan error)
	go func(c chan string, cerr chan error) {
		defer close(c)
		defer close(cerr)
		reader := bufio.NewReader(os.Stdin)
		text, err := reader.ReadString(0)
		if err == nil || text != "" {
			c <- text
		} else {
			cerr <- err
		}
	}(c, cerr)

	select {
	case <-time.After(500 * time.Millisecond):
		return "", errors.New("expected input from stdin, got none")
	case s := <-c:
		return s, nil
	}
}
