package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("SHIFTLINE_TEST_MODE") == "" {
			_ = os.Setenv("SHIFTLINE_TEST_MODE", "1")
		}
	})
}
