package chunk_test

import (
	"bytes"
	"io"
	"math/rand"
	"testing"

	"github.com/khaznati/chunkvault/pkg/internal/chunk"
)

const mib = 1024 * 1024

// collect 把切块器的全部输出读完.
func collect(t *testing.T, s *chunk.Splitter) [][]byte {
	t.Helper()

	var out [][]byte

	for {
		seq, data, err := s.Next()
		if err == io.EOF {
			return out
		}

		if err != nil {
			t.Fatalf("next failed: %v", err)
		}

		if seq != len(out) {
			t.Fatalf("seq = %d, want %d", seq, len(out))
		}

		out = append(out, data)
	}
}

// TestSplitterSizes 45MiB 文件按 20MiB 切出 20/20/5.
func TestSplitterSizes(t *testing.T) {
	data := make([]byte, 45*mib)

	s, err := chunk.NewSplitter(bytes.NewReader(data), 20*mib)
	if err != nil {
		t.Fatalf("new splitter: %v", err)
	}

	chunks := collect(t, s)

	wantSizes := []int{20 * mib, 20 * mib, 5 * mib}
	if len(chunks) != len(wantSizes) {
		t.Fatalf("chunk count = %d, want %d", len(chunks), len(wantSizes))
	}

	for i, want := range wantSizes {
		if len(chunks[i]) != want {
			t.Errorf("chunk %d size = %d, want %d", i, len(chunks[i]), want)
		}
	}
}

// TestSplitterExactMultiple 大小恰为块大小整数倍时没有空尾块.
func TestSplitterExactMultiple(t *testing.T) {
	data := make([]byte, 4*mib)

	s, _ := chunk.NewSplitter(bytes.NewReader(data), mib)

	chunks := collect(t, s)
	if len(chunks) != 4 {
		t.Errorf("chunk count = %d, want 4", len(chunks))
	}

	for i, c := range chunks {
		if len(c) != mib {
			t.Errorf("chunk %d size = %d, want %d", i, len(c), mib)
		}
	}
}

// TestSplitterEmptyInput 空文件产生零个分块.
func TestSplitterEmptyInput(t *testing.T) {
	s, _ := chunk.NewSplitter(bytes.NewReader(nil), mib)

	chunks := collect(t, s)
	if len(chunks) != 0 {
		t.Errorf("chunk count = %d, want 0", len(chunks))
	}

	if s.Count() != 0 {
		t.Errorf("count = %d, want 0", s.Count())
	}
}

// TestSplitterSmallFile 小于块大小的文件是单块.
func TestSplitterSmallFile(t *testing.T) {
	payload := []byte("tiny")

	s, _ := chunk.NewSplitter(bytes.NewReader(payload), mib)

	chunks := collect(t, s)
	if len(chunks) != 1 || !bytes.Equal(chunks[0], payload) {
		t.Errorf("got %d chunks, want single chunk equal to input", len(chunks))
	}
}

// TestSplitterRejectsBadSize 非正块大小被拒绝.
func TestSplitterRejectsBadSize(t *testing.T) {
	for _, size := range []int64{0, -1} {
		if _, err := chunk.NewSplitter(bytes.NewReader(nil), size); err == nil {
			t.Errorf("size %d accepted, want error", size)
		}
	}
}

// TestCountChunks 切块数公式.
func TestCountChunks(t *testing.T) {
	cases := []struct {
		total, size int64
		want        int
	}{
		{0, mib, 0},
		{1, mib, 1},
		{mib, mib, 1},
		{mib + 1, mib, 2},
		{45 * mib, 20 * mib, 3},
	}

	for _, c := range cases {
		if got := chunk.CountChunks(c.total, c.size); got != c.want {
			t.Errorf("CountChunks(%d, %d) = %d, want %d", c.total, c.size, got, c.want)
		}
	}
}

// TestRoundTripOutOfOrder 乱序提交给组装器仍还原出原始字节流.
func TestRoundTripOutOfOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	data := make([]byte, 3*mib+12345)
	rng.Read(data)

	s, _ := chunk.NewSplitter(bytes.NewReader(data), mib)
	chunks := collect(t, s)

	// 随机次序提交
	order := rng.Perm(len(chunks))

	var out bytes.Buffer

	a := chunk.NewAssembler(&out)
	for _, i := range order {
		if err := a.Push(i, chunks[i]); err != nil {
			t.Fatalf("push %d failed: %v", i, err)
		}
	}

	if a.Pending() != 0 {
		t.Errorf("pending = %d after all pushes, want 0", a.Pending())
	}

	if a.Flushed() != len(chunks) {
		t.Errorf("flushed = %d, want %d", a.Flushed(), len(chunks))
	}

	if !bytes.Equal(out.Bytes(), data) {
		t.Error("assembled output differs from input")
	}
}

// TestAssemblerRejectsDuplicates 重复的 Seq 必须报错.
func TestAssemblerRejectsDuplicates(t *testing.T) {
	var out bytes.Buffer

	a := chunk.NewAssembler(&out)

	if err := a.Push(1, []byte("b")); err != nil {
		t.Fatalf("push 1: %v", err)
	}

	if err := a.Push(1, []byte("b")); err == nil {
		t.Error("duplicate buffered seq accepted")
	}

	if err := a.Push(0, []byte("a")); err != nil {
		t.Fatalf("push 0: %v", err)
	}

	if err := a.Push(0, []byte("a")); err == nil {
		t.Error("already-written seq accepted")
	}
}

// TestChecksumStability 相同输入产生相同校验和，不同输入不同.
func TestChecksumStability(t *testing.T) {
	a := chunk.Checksum([]byte("hello world"))
	b := chunk.Checksum([]byte("hello world"))
	c := chunk.Checksum([]byte("hello worlds"))

	if a != b {
		t.Errorf("checksum not deterministic: %s != %s", a, b)
	}

	if a == c {
		t.Error("different inputs produced identical checksum")
	}

	if len(a) != 16 {
		t.Errorf("checksum length = %d, want 16 hex chars", len(a))
	}
}

// TestDigestMatchesChecksum 流式摘要与一次性校验和一致.
func TestDigestMatchesChecksum(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog")

	d := chunk.NewDigest()
	for i := 0; i < len(payload); i += 7 {
		end := min(i+7, len(payload))
		if _, err := d.Write(payload[i:end]); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	if d.Sum() != chunk.Checksum(payload) {
		t.Errorf("streaming digest %s != one-shot %s", d.Sum(), chunk.Checksum(payload))
	}
}
