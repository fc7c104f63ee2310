package integrations_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/matzehuels/factoryflow/pkg/integrations"
)

func ExampleClient_Get() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"factoryId":"F1"}`)
	}))
	defer srv.Close()

	api, err := integrations.NewClient(srv.URL, integrations.WithRateLimit(10, 5))
	if err != nil {
		panic(err)
	}

	var doc struct {
		FactoryID string `json:"factoryId"`
	}
	if err := api.Get(context.Background(), "/react-flow/F1", nil, &doc); err != nil {
		panic(err)
	}
	fmt.Println(doc.FactoryID)
	// Output:
	// F1
}

func Example_errors() {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	api, _ := integrations.NewClient(srv.URL)
	err := api.Get(context.Background(), "/react-flow/missing", nil, nil)

	// Status errors unwrap to the package's sentinels.
	fmt.Println(errors.Is(err, integrations.ErrNotFound))
	fmt.Println(errors.Is(err, integrations.ErrNetwork))
	// Output:
	// true
	// false
}
