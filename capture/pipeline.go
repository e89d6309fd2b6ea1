package capture

import (
	"encoding/binary"
	"sync"

	"vang/encoder"
)

// pipeline moves raw capture PCM into a FLAC encoder on a separate
// goroutine so the device callback never blocks on compression.
type pipeline struct {
	enc        encoder.Encoder
	blockChan  chan []int16
	encodeDone chan struct{}

	bufMu     sync.Mutex
	sampleBuf []int16
	closed    bool
}

func newPipeline() (*pipeline, error) {
	enc, err := encoder.NewFlac()
	if err != nil {
		return nil, err
	}
	p := &pipeline{
		enc:        enc,
		blockChan:  make(chan []int16, 64),
		encodeDone: make(chan struct{}),
	}
	go func() {
		defer close(p.encodeDone)
		for block := range p.blockChan {
			p.enc.EncodeBlock(block)
		}
	}()
	return p, nil
}

// Feed accepts little-endian PCM16 from the device callback and hands
// full encoder blocks to the encode goroutine.
func (p *pipeline) Feed(pcm []byte) {
	p.bufMu.Lock()
	defer p.bufMu.Unlock()
	if p.closed {
		return
	}
	for i := 0; i+1 < len(pcm); i += 2 {
		p.sampleBuf = append(p.sampleBuf, int16(binary.LittleEndian.Uint16(pcm[i:])))
	}
	for len(p.sampleBuf) >= encoder.BlockSize {
		block := make([]int16, encoder.BlockSize)
		copy(block, p.sampleBuf[:encoder.BlockSize])
		p.sampleBuf = p.sampleBuf[encoder.BlockSize:]
		p.blockChan <- block
	}
}

// Close flushes the remaining samples, waits for the encode goroutine and
// finalizes the stream. It returns the encoded FLAC bytes and the number
// of PCM frames they carry.
func (p *pipeline) Close() ([]byte, uint64, error) {
	p.bufMu.Lock()
	if p.closed {
		p.bufMu.Unlock()
		return p.enc.Bytes(), p.enc.TotalFrames(), nil
	}
	p.closed = true
	if len(p.sampleBuf) > 0 {
		partial := make([]int16, len(p.sampleBuf))
		copy(partial, p.sampleBuf)
		p.blockChan <- partial
		p.sampleBuf = nil
	}
	close(p.blockChan)
	p.bufMu.Unlock()

	<-p.encodeDone
	if err := p.enc.Close(); err != nil {
		return nil, 0, err
	}
	return p.enc.Bytes(), p.enc.TotalFrames(), nil
}

// Abort drains the encode goroutine and discards whatever was buffered.
func (p *pipeline) Abort() {
	p.bufMu.Lock()
	if p.closed {
		p.bufMu.Unlock()
		return
	}
	p.closed = true
	p.sampleBuf = nil
	close(p.blockChan)
	p.bufMu.Unlock()

	<-p.encodeDone
	p.enc.Close()
}
