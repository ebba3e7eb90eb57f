package testclient

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/roomgen/internal/server"
)

// ErrTimeout is returned when the server does not answer in time
var ErrTimeout = errors.New("testclient: timed out waiting for response")

// TestClient is a WebSocket connection to a layout server that records every
// response it receives
type TestClient struct {
	Name      string
	conn      *websocket.Conn
	writeMu   sync.Mutex
	responses []server.Response
	readErr   error
	mu        sync.Mutex
	closeOnce sync.Once
}

// NewTestClient connects to a layout server's WebSocket URL, for example
// ws://localhost:8080/ws. A non-empty origin is sent as the Origin header.
func NewTestClient(name, url, origin string) (*TestClient, error) {
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}

	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	client := &TestClient{
		Name: name,
		conn: conn,
	}

	// Start reading responses in background
	go client.readResponses()

	return client, nil
}

// readResponses continuously reads responses from the server
func (c *TestClient) readResponses() {
	for {
		var resp server.Response
		if err := c.conn.ReadJSON(&resp); err != nil {
			c.mu.Lock()
			c.readErr = err
			c.mu.Unlock()
			return
		}
		c.mu.Lock()
		c.responses = append(c.responses, resp)
		c.mu.Unlock()
	}
}

// Send writes one request to the server
func (c *TestClient) Send(req server.Request) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(req)
}

// Do sends a request and waits for the response to it
func (c *TestClient) Do(req server.Request, timeout time.Duration) (server.Response, error) {
	n := c.ResponseCount()
	if err := c.Send(req); err != nil {
		return server.Response{}, err
	}
	return c.WaitForResponse(n, timeout)
}

// Generate asks the server for a layout
func (c *TestClient) Generate(seed int64, steps []server.StepRequest, save bool, timeout time.Duration) (server.Response, error) {
	return c.Do(server.Request{
		Type:  server.TypeGenerate,
		Seed:  seed,
		Steps: steps,
		Save:  save,
	}, timeout)
}

// Get fetches a stored layout
func (c *TestClient) Get(id int64, timeout time.Duration) (server.Response, error) {
	return c.Do(server.Request{Type: server.TypeGet, LayoutID: id}, timeout)
}

// ResponseCount returns the number of responses received so far
func (c *TestClient) ResponseCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.responses)
}

// GetResponses returns all responses received so far
func (c *TestClient) GetResponses() []server.Response {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]server.Response, len(c.responses))
	copy(result, c.responses)
	return result
}

// GetLastResponse returns the most recent response
func (c *TestClient) GetLastResponse() (server.Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.responses) == 0 {
		return server.Response{}, false
	}
	return c.responses[len(c.responses)-1], true
}

// ClearResponses clears the response buffer
func (c *TestClient) ClearResponses() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = nil
}

// WaitForResponse waits until the response at index n has arrived
func (c *TestClient) WaitForResponse(n int, timeout time.Duration) (server.Response, error) {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		c.mu.Lock()
		if len(c.responses) > n {
			resp := c.responses[n]
			c.mu.Unlock()
			return resp, nil
		}
		readErr := c.readErr
		c.mu.Unlock()

		if readErr != nil {
			return server.Response{}, fmt.Errorf("connection closed: %w", readErr)
		}
		time.Sleep(10 * time.Millisecond)
	}

	return server.Response{}, ErrTimeout
}

// Close sends a close frame and closes the connection
func (c *TestClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// PrintResponses prints a one-line summary of every response (for debugging)
func (c *TestClient) PrintResponses() {
	responses := c.GetResponses()
	fmt.Printf("\n=== Responses for %s ===\n", c.Name)
	for i, r := range responses {
		if r.Type == server.TypeError {
			fmt.Printf("[%d] error: %s\n", i, r.Error)
			continue
		}
		fmt.Printf("[%d] %s: %d rooms, digest %s\n", i, r.Type, r.Placed, r.Digest)
	}
	fmt.Println("======================")
}
