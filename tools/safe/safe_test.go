package safe

import (
	"sync"
	"testing"

	"go.uber.org/zap"
)

func TestGoRecoversPanic(t *testing.T) {
	log := zap.NewNop()

	var wg sync.WaitGroup
	wg.Add(1)
	done := make(chan struct{})

	Go(log, "test-panic-task", func() {
		defer wg.Done()
		defer close(done)
		panic("boom")
	})

	wg.Wait()
	<-done
	// reaching here means the panic did not crash the test process
}

func TestGoRunsFunction(t *testing.T) {
	log := zap.NewNop()
	ran := make(chan struct{})

	Go(log, "test-normal-task", func() {
		close(ran)
	})

	<-ran
}
