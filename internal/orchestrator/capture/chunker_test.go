package capture

import "testing"

func samples(n int, v float32) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func TestChunkerWindows(t *testing.T) {
	tests := []struct {
		name       string
		pushes     []int
		wantChunks int
		wantRemain int
	}{
		{"below one window", []int{999}, 0, 999},
		{"exact window", []int{1000}, 1, 0},
		{"split across pushes", []int{600, 600}, 1, 200},
		{"several windows at once", []int{3500}, 3, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChunker(1000, 1000, 1000, 1)
			got := 0
			for _, n := range tt.pushes {
				for _, ch := range c.Push(samples(n, 0.1)) {
					if len(ch.Samples) != 1000 {
						t.Errorf("chunk length = %d", len(ch.Samples))
					}
					got++
				}
			}
			if got != tt.wantChunks {
				t.Errorf("chunks = %d, want %d", got, tt.wantChunks)
			}
			if c.Buffered() != tt.wantRemain {
				t.Errorf("Buffered = %d, want %d", c.Buffered(), tt.wantRemain)
			}
		})
	}
}

func TestChunkerPreservesOrder(t *testing.T) {
	c := NewChunker(4, 4, 4, 7)
	var in []float32
	for i := 0; i < 10; i++ {
		in = append(in, float32(i))
	}

	var out []float32
	for _, ch := range c.Push(in[:3]) {
		out = append(out, ch.Samples...)
	}
	for _, ch := range c.Push(in[3:]) {
		if ch.Epoch != 7 {
			t.Errorf("epoch = %d, want 7", ch.Epoch)
		}
		out = append(out, ch.Samples...)
	}

	for i, v := range out {
		if v != float32(i) {
			t.Fatalf("out[%d] = %v, want %v", i, v, float32(i))
		}
	}
	if len(out) != 8 {
		t.Errorf("emitted %d samples, want 8", len(out))
	}
}

func TestChunkerSequence(t *testing.T) {
	c := NewChunker(10, 10, 5, 1)
	chunks := c.Push(samples(30, 0))
	for i, ch := range chunks {
		if ch.Seq != i+1 {
			t.Errorf("chunk %d seq = %d", i, ch.Seq)
		}
		if ch.Final {
			t.Error("regular chunk marked final")
		}
	}
}

func TestChunkerFlush(t *testing.T) {
	tests := []struct {
		name        string
		buffered    int
		wantFlushed bool
		wantDropped int
	}{
		{"empty", 0, false, 0},
		{"too short", 999, false, 999},
		{"exactly minimum", 1000, true, 0},
		{"long remainder", 1500, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChunker(1000, 2000, 1000, 1)
			c.Push(samples(tt.buffered, 0.2))

			ch, ok := c.Flush()
			if ok != tt.wantFlushed {
				t.Fatalf("flushed = %v, want %v", ok, tt.wantFlushed)
			}
			if ok && (!ch.Final || len(ch.Samples) != tt.buffered) {
				t.Errorf("final chunk = final:%v len:%d", ch.Final, len(ch.Samples))
			}
			if c.Buffered() != 0 {
				t.Errorf("Buffered = %d after flush", c.Buffered())
			}
			if got := c.Stats().Dropped; got != tt.wantDropped {
				t.Errorf("Dropped = %d, want %d", got, tt.wantDropped)
			}
		})
	}
}

func TestChunkerLossless(t *testing.T) {
	c := NewChunker(16000, 16000, 16000, 1)
	for _, n := range []int{1024, 7000, 16000, 333, 40000, 5} {
		c.Push(samples(n, 0.3))
	}
	st := c.Stats()
	if st.Ingested != st.Submitted+st.Dropped+c.Buffered() {
		t.Errorf("stats %+v do not account for %d buffered samples", st, c.Buffered())
	}
	if st.Submitted != st.Chunks*16000 {
		t.Errorf("Submitted = %d for %d chunks", st.Submitted, st.Chunks)
	}
}
