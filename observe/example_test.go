package observe_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/gqlguard/observe"
)

func ExampleNewObserver() {
	cfg := observe.Config{
		ServiceName: "gqlguard",
		Version:     "1.0.0",
		Tracing:     observe.TracingConfig{Enabled: true, Exporter: "none"},
		Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
	}

	ctx := context.Background()
	obs, err := observe.NewObserver(ctx, cfg)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	defer func() {
		_ = obs.Shutdown(ctx)
	}()

	fmt.Println("Observer created successfully")
	// Output:
	// Observer created successfully
}

func ExampleNewObserver_validation() {
	_, err := observe.NewObserver(context.Background(), observe.Config{})
	if errors.Is(err, observe.ErrMissingServiceName) {
		fmt.Println("Caught: missing service name")
	}
	// Output:
	// Caught: missing service name
}

func ExampleOperationMeta_SpanName() {
	meta := observe.OperationMeta{Name: "createMovie", Kind: "mutation"}
	fmt.Println(meta.SpanName())
	// Output:
	// auth.mutation.createMovie
}
