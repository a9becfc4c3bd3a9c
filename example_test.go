package canopy_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/canopy"
)

// ExampleValidate checks a graph offline, without connecting to any capability server.
func ExampleValidate() {
	graph := []byte(`{
	  "1": {"class": "user", "data": {}, "outputs": {"output_1": {"connections": [{"node": "2"}]}}},
	  "2": {"class": "supervisor", "data": {"name": "Planner"}, "outputs": {"output_1": {"connections": [{"node": "3"}, {"node": "4"}]}}},
	  "3": {"class": "agent", "data": {"name": "Researcher"}, "outputs": {}},
	  "4": {"class": "agent", "data": {"name": "Writer"}, "outputs": {}}
	}`)

	wf, err := canopy.Validate(context.Background(), graph, nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(wf.EntryPoint().Name())
	fmt.Println(wf.Names())
	// Output:
	// Planner
	// [Planner Researcher Writer]
}
