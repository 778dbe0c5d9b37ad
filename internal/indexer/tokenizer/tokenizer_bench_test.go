package tokenizer

import (
	"fmt"
	"strings"
	"testing"
)

var sampleSources = map[string]string{
	"identifier": "getUserByIdFromHTTPRequest",
	"function": `func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.FindUserByEmail(r.Context(), r.FormValue("email"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	json.NewEncoder(w).Encode(user)
}`,
	"file": strings.Repeat(`class SessionManager:
    def create_session(self, user_id, ttl_seconds=3600):
        token = secrets.token_urlsafe(32)
        self.redis_client.setex(f"session:{token}", ttl_seconds, user_id)
        return token

`, 40),
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range sampleSources {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = Tokenize(text)
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := sampleSources["function"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = Tokenize(text)
		}
	})
}

func BenchmarkTokenizeVaryingSize(b *testing.B) {
	base := "parseConfigFile read_all_lines HTTPServer handleRequest "
	for _, size := range []int{64, 512, 4096, 32768} {
		text := strings.Repeat(base, size/len(base)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = Tokenize(text)
			}
		})
	}
}
