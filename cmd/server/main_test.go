package main

import (
	"errors"
	"reflect"
	"testing"
)

func TestRunShutdownOrder(t *testing.T) {
	var order []string
	step := func(name string, err error) shutdownStep {
		return shutdownStep{name: name, stop: func() error {
			order = append(order, name)
			return err
		}}
	}

	runShutdown([]shutdownStep{
		step("scheduler", nil),
		step("plan workers", nil),
		step("http server", errors.New("already closed")),
		step("mongodb", nil),
	})

	want := []string{"scheduler", "plan workers", "http server", "mongodb"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestRunShutdownWaitsForWorkers(t *testing.T) {
	finished := make(chan struct{})
	workerDone := false

	go func() {
		runShutdown([]shutdownStep{
			{name: "plan workers", stop: func() error {
				workerDone = true
				return nil
			}},
			{name: "http server", stop: func() error {
				if !workerDone {
					t.Error("server stopped before workers finished")
				}
				return nil
			}},
		})
		close(finished)
	}()
	<-finished
}
