package alloc

import (
	"fmt"
	"os"
)

// Debug flag - set to true to enable verbose logging (compile-time toggle).
const debugAlloc = false

// Runtime flag for allocation tracing - controlled by KHEAP_LOG_ALLOC env var.
var logAlloc = os.Getenv("KHEAP_LOG_ALLOC") != ""

func debugLogf(format string, args ...any) {
	if debugAlloc {
		fmt.Fprintf(os.Stderr, "[ALLOC] "+format+"\n", args...)
	}
}

func traceLogf(format string, args ...any) {
	if logAlloc {
		fmt.Fprintf(os.Stderr, "[ALLOC] "+format+"\n", args...)
	}
}
