// Package chunk 提供文件与定长分块序列之间的编解码.
// 分块大小是系统级固定值，只有最后一块可以更短；空文件产生零个分块.
package chunk

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
)

// Splitter 把字节流切成定长分块，Seq 从 0 开始连续递增.
type Splitter struct {
	r    io.Reader
	size int64
	seq  int
	done bool
}

// NewSplitter 创建切块器，size 必须为正.
func NewSplitter(r io.Reader, size int64) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}

	return &Splitter{r: r, size: size}, nil
}

// Next 返回下一个分块，流结束时返回 io.EOF.
// 返回的切片归调用方所有.
func (s *Splitter) Next() (int, []byte, error) {
	if s.done {
		return 0, nil, io.EOF
	}

	buf := make([]byte, s.size)

	n, err := io.ReadFull(s.r, buf)
	switch err {
	case nil:
	case io.ErrUnexpectedEOF:
		// 最后一块更短
		s.done = true
	case io.EOF:
		s.done = true
		return 0, nil, io.EOF
	default:
		return 0, nil, fmt.Errorf("read chunk %d: %w", s.seq, err)
	}

	seq := s.seq
	s.seq++

	return seq, buf[:n], nil
}

// Count 返回到目前为止产出的分块数.
func (s *Splitter) Count() int {
	return s.seq
}

// CountChunks 计算给定大小的文件会产生的分块数.
func CountChunks(totalSize, chunkSize int64) int {
	if totalSize <= 0 || chunkSize <= 0 {
		return 0
	}

	return int((totalSize + chunkSize - 1) / chunkSize)
}

// Checksum 计算数据的 xxhash64 校验和（十六进制）.
func Checksum(data []byte) string {
	var b [8]byte

	binary.BigEndian.PutUint64(b[:], xxhash.Sum64(data))

	return hex.EncodeToString(b[:])
}

// Digest 流式计算整文件校验和.
type Digest struct {
	h *xxhash.Digest
}

// NewDigest 创建整文件校验和计算器.
func NewDigest() *Digest {
	return &Digest{h: xxhash.New()}
}

// Write 实现 io.Writer.
func (d *Digest) Write(p []byte) (int, error) {
	return d.h.Write(p)
}

// Sum 返回当前校验和（十六进制）.
func (d *Digest) Sum() string {
	var b [8]byte

	binary.BigEndian.PutUint64(b[:], d.h.Sum64())

	return hex.EncodeToString(b[:])
}

// Assembler 把乱序到达的分块按 Seq 顺序写出.
// 并发下载时分块完成次序不定，未轮到的块先缓存在内存里.
type Assembler struct {
	w       io.Writer
	next    int
	pending map[int][]byte
}

// NewAssembler 创建组装器，从 Seq 0 开始写.
func NewAssembler(w io.Writer) *Assembler {
	return &Assembler{w: w, pending: make(map[int][]byte)}
}

// Push 提交一个分块；轮到的块连同已缓存的后继一起写出.
func (a *Assembler) Push(seq int, data []byte) error {
	if seq < a.next {
		return fmt.Errorf("chunk %d already written", seq)
	}

	if _, dup := a.pending[seq]; dup {
		return fmt.Errorf("chunk %d already buffered", seq)
	}

	a.pending[seq] = data

	for {
		buf, ok := a.pending[a.next]
		if !ok {
			return nil
		}

		if _, err := a.w.Write(buf); err != nil {
			return fmt.Errorf("write chunk %d: %w", a.next, err)
		}

		delete(a.pending, a.next)
		a.next++
	}
}

// Pending 返回尚未写出的缓存块数.
func (a *Assembler) Pending() int {
	return len(a.pending)
}

// Flushed 返回已按顺序写出的块数.
func (a *Assembler) Flushed() int {
	return a.next
}
