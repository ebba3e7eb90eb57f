package test

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lawnchairsociety/roomgen/internal/layout"
	"github.com/lawnchairsociety/roomgen/internal/server"
	"github.com/lawnchairsociety/roomgen/internal/testclient"
)

// Verbose controls whether detailed logging is shown during tests
var Verbose = false

// Timeout bounds every request made by a scenario
var Timeout = 5 * time.Second

// TestResult represents the result of a test
type TestResult struct {
	Name    string
	Passed  bool
	Message string
}

// logAction logs a test action when verbose mode is enabled
func logAction(testName, action string) {
	if Verbose {
		fmt.Printf("  [%s] %s\n", testName, action)
	}
}

// logResult logs an expected vs actual result when verbose mode is enabled
func logResult(testName string, success bool, detail string) {
	if Verbose {
		status := "OK"
		if !success {
			status = "FAIL"
		}
		fmt.Printf("  [%s] %s: %s\n", testName, status, detail)
	}
}

func fail(name, format string, args ...any) TestResult {
	msg := fmt.Sprintf(format, args...)
	logResult(name, false, msg)
	return TestResult{Name: name, Passed: false, Message: msg}
}

func pass(name, format string, args ...any) TestResult {
	msg := fmt.Sprintf(format, args...)
	logResult(name, true, msg)
	return TestResult{Name: name, Passed: true, Message: msg}
}

func mixedSteps() []server.StepRequest {
	return []server.StepRequest{
		{Kind: "solid", Count: 5, MinBlocks: 1, MaxBlocks: 6},
		{Kind: "partitioned", Count: 4, MinBlocks: 3, MaxBlocks: 8},
	}
}

// RunAllTests runs every scenario against the server's WebSocket URL
func RunAllTests(url string) []TestResult {
	results := make([]TestResult, 0)

	// Group 1: Generation
	results = append(results, TestGenerateLayout(url))
	results = append(results, TestDeterministicSeed(url))
	results = append(results, TestConcurrentClients(url))

	// Group 2: Request validation
	results = append(results, TestRoomLimit(url))
	results = append(results, TestInvalidStep(url))
	results = append(results, TestUnknownRequest(url))

	// Group 3: Storage
	results = append(results, TestSaveAndGet(url))

	return results
}

// TestGenerateLayout checks a generated layout's geometry and adjacency
func TestGenerateLayout(url string) TestResult {
	name := "Generate Layout"

	client, err := testclient.NewTestClient("generate", url, "")
	if err != nil {
		return fail(name, "Failed to connect: %v", err)
	}
	defer client.Close()

	logAction(name, "Requesting 9 rooms with seed 42")
	resp, err := client.Generate(42, mixedSteps(), false, Timeout)
	if err != nil {
		return fail(name, "No response: %v", err)
	}
	if resp.Type != server.TypeLayout {
		return fail(name, "Expected layout, got %s: %s", resp.Type, resp.Error)
	}
	if resp.Placed == 0 || resp.Placed != len(resp.Rooms) {
		return fail(name, "Placed %d but returned %d rooms", resp.Placed, len(resp.Rooms))
	}
	if err := CheckLayout(resp.Rooms); err != nil {
		return fail(name, "%v", err)
	}

	return pass(name, "%d rooms placed, digest %s", resp.Placed, shortDigest(resp.Digest))
}

// TestDeterministicSeed checks that two clients asking for the same seed get
// the same layout
func TestDeterministicSeed(url string) TestResult {
	name := "Deterministic Seed"

	a, err := testclient.NewTestClient("seed-a", url, "")
	if err != nil {
		return fail(name, "Failed to connect first client: %v", err)
	}
	defer a.Close()
	b, err := testclient.NewTestClient("seed-b", url, "")
	if err != nil {
		return fail(name, "Failed to connect second client: %v", err)
	}
	defer b.Close()

	logAction(name, "Both clients request seed 1234")
	ra, err := a.Generate(1234, mixedSteps(), false, Timeout)
	if err != nil {
		return fail(name, "First client got no response: %v", err)
	}
	rb, err := b.Generate(1234, mixedSteps(), false, Timeout)
	if err != nil {
		return fail(name, "Second client got no response: %v", err)
	}
	if ra.Digest == "" || ra.Digest != rb.Digest {
		return fail(name, "Digests differ: %q vs %q", ra.Digest, rb.Digest)
	}

	return pass(name, "Both clients got digest %s", shortDigest(ra.Digest))
}

// TestConcurrentClients generates layouts from several clients at once
func TestConcurrentClients(url string) TestResult {
	name := "Concurrent Clients"
	const clients = 4

	var wg sync.WaitGroup
	errs := make([]error, clients)
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := testclient.NewTestClient(fmt.Sprintf("worker-%d", i), url, "")
			if err != nil {
				errs[i] = err
				return
			}
			defer c.Close()

			resp, err := c.Generate(int64(100+i), mixedSteps(), false, Timeout)
			if err != nil {
				errs[i] = err
				return
			}
			if resp.Type != server.TypeLayout {
				errs[i] = fmt.Errorf("got %s: %s", resp.Type, resp.Error)
				return
			}
			errs[i] = CheckLayout(resp.Rooms)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return fail(name, "Client %d: %v", i, err)
		}
	}
	return pass(name, "%d clients generated valid layouts", clients)
}

// TestRoomLimit checks the per-request room limit
func TestRoomLimit(url string) TestResult {
	name := "Room Limit"

	client, err := testclient.NewTestClient("limit", url, "")
	if err != nil {
		return fail(name, "Failed to connect: %v", err)
	}
	defer client.Close()

	logAction(name, "Requesting 100000 rooms")
	resp, err := client.Generate(1, []server.StepRequest{
		{Kind: "solid", Count: 100000, MinBlocks: 1, MaxBlocks: 1},
	}, false, Timeout)
	if err != nil {
		return fail(name, "No response: %v", err)
	}
	if resp.Type != server.TypeError || !strings.Contains(resp.Error, "room limit") {
		return fail(name, "Expected room limit error, got %s: %s", resp.Type, resp.Error)
	}
	return pass(name, "Rejected: %s", resp.Error)
}

// TestInvalidStep checks that a malformed step is rejected without a layout
func TestInvalidStep(url string) TestResult {
	name := "Invalid Step"

	client, err := testclient.NewTestClient("invalid", url, "")
	if err != nil {
		return fail(name, "Failed to connect: %v", err)
	}
	defer client.Close()

	resp, err := client.Generate(1, []server.StepRequest{
		{Kind: "solid", Count: 2, MinBlocks: 5, MaxBlocks: 2},
	}, false, Timeout)
	if err != nil {
		return fail(name, "No response: %v", err)
	}
	if resp.Type != server.TypeError {
		return fail(name, "Expected error for min > max, got %s", resp.Type)
	}
	if len(resp.Rooms) != 0 {
		return fail(name, "Error response carried %d rooms", len(resp.Rooms))
	}
	return pass(name, "Rejected: %s", resp.Error)
}

// TestUnknownRequest checks the reply to an unknown message type
func TestUnknownRequest(url string) TestResult {
	name := "Unknown Request"

	client, err := testclient.NewTestClient("unknown", url, "")
	if err != nil {
		return fail(name, "Failed to connect: %v", err)
	}
	defer client.Close()

	resp, err := client.Do(server.Request{Type: "teleport"}, Timeout)
	if err != nil {
		return fail(name, "No response: %v", err)
	}
	if resp.Type != server.TypeError {
		return fail(name, "Expected error, got %s", resp.Type)
	}

	// The connection stays usable after an error
	resp, err = client.Generate(5, mixedSteps(), false, Timeout)
	if err != nil || resp.Type != server.TypeLayout {
		return fail(name, "Connection unusable after error: %v %s", err, resp.Error)
	}
	return pass(name, "Rejected and connection kept open")
}

// TestSaveAndGet stores a layout and reads it back. Servers without a store
// must answer with an error instead.
func TestSaveAndGet(url string) TestResult {
	name := "Save And Get"

	client, err := testclient.NewTestClient("store", url, "")
	if err != nil {
		return fail(name, "Failed to connect: %v", err)
	}
	defer client.Close()

	saved, err := client.Generate(77, mixedSteps(), true, Timeout)
	if err != nil {
		return fail(name, "No response: %v", err)
	}
	if saved.Type == server.TypeError {
		if strings.Contains(saved.Error, server.ErrNoStore.Error()) {
			return pass(name, "Server has no store; save rejected")
		}
		return fail(name, "Save failed: %s", saved.Error)
	}
	if saved.LayoutID == 0 {
		return fail(name, "Saved layout has no id")
	}

	logAction(name, fmt.Sprintf("Fetching layout %d", saved.LayoutID))
	got, err := client.Get(saved.LayoutID, Timeout)
	if err != nil {
		return fail(name, "No response: %v", err)
	}
	if got.Type != server.TypeLayout {
		return fail(name, "Get failed: %s", got.Error)
	}
	if got.Digest != saved.Digest {
		return fail(name, "Digest changed: %s vs %s", got.Digest, saved.Digest)
	}

	// Saving the same layout again returns the existing id
	again, err := client.Generate(77, mixedSteps(), true, Timeout)
	if err != nil || again.LayoutID != saved.LayoutID {
		return fail(name, "Second save returned id %d, want %d", again.LayoutID, saved.LayoutID)
	}

	return pass(name, "Layout %d round-tripped", saved.LayoutID)
}

// CheckLayout verifies the invariants a client can see: no two blocks share a
// cell, facing sides agree, and door neighbors are symmetric and backed by a
// door side.
func CheckLayout(rooms []server.RoomReply) error {
	type cellOwner struct {
		room  int
		block layout.BlockData
	}
	cells := make(map[layout.Coord]cellOwner)
	for _, r := range rooms {
		if len(r.Blocks) == 0 {
			return fmt.Errorf("room %d has no blocks", r.Index)
		}
		for _, b := range r.Blocks {
			c := layout.Coord{X: b.X, Y: b.Y}
			if prev, ok := cells[c]; ok {
				return fmt.Errorf("cell %s used by rooms %d and %d", c, prev.room, r.Index)
			}
			cells[c] = cellOwner{room: r.Index, block: b}
		}
	}

	doorLinks := make(map[[2]int]bool)
	for c, owner := range cells {
		for _, dir := range layout.AllDirections() {
			other, ok := cells[c.Step(dir)]
			if !ok {
				continue
			}
			mine, theirs := owner.block.Side(dir), other.block.Side(dir.Opposite())
			if mine != theirs {
				return fmt.Errorf("cell %s %s side is %s, facing side is %s", c, dir, mine, theirs)
			}
			if owner.room != other.room && mine == layout.Door {
				doorLinks[[2]int{owner.room, other.room}] = true
			}
		}
	}

	byIndex := make(map[int]server.RoomReply, len(rooms))
	for _, r := range rooms {
		byIndex[r.Index] = r
	}
	for _, r := range rooms {
		for _, n := range r.Neighbors {
			if !contains(byIndex[n].Neighbors, r.Index) {
				return fmt.Errorf("room %d lists %d as a neighbor but not the reverse", r.Index, n)
			}
			if !doorLinks[[2]int{r.Index, n}] {
				return fmt.Errorf("rooms %d and %d are neighbors without a door", r.Index, n)
			}
		}
	}
	return nil
}

func contains(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

// PrintResults prints a summary of test results
func PrintResults(results []TestResult) {
	passed := 0
	failed := 0

	fmt.Println("============================================================")
	fmt.Println("Integration Test Results")
	fmt.Println("============================================================")
	fmt.Println()

	for _, r := range results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
			failed++
		} else {
			passed++
		}
		fmt.Printf("[%s] %s: %s\n", status, r.Name, r.Message)
	}

	fmt.Println()
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Total: %d | Passed: %d | Failed: %d\n", len(results), passed, failed)
	fmt.Println("------------------------------------------------------------")
}

// Failed reports whether any result failed
func Failed(results []TestResult) error {
	for _, r := range results {
		if !r.Passed {
			return errors.New("integration tests failed")
		}
	}
	return nil
}
