package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// ApiClient handles requests to the gateway API
type ApiClient struct {
	httpClient *http.Client
	BaseURL    string
	Token      string
}

// NewApiClient creates a gateway client from the environment. COMANDA_URL
// points at the gateway, COMANDA_CLI_TOKEN is the terminal's credential.
func NewApiClient() *ApiClient {
	baseURL := os.Getenv("COMANDA_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	client := &ApiClient{
		httpClient: &http.Client{
			Timeout: time.Second * 10,
		},
		BaseURL: baseURL,
		Token:   os.Getenv("COMANDA_CLI_TOKEN"),
	}

	if !client.ping() {
		fmt.Printf("Warning: gateway at %s is not available.\n", baseURL)
	}

	return client
}

// ping checks if the gateway is available
func (c *ApiClient) ping() bool {
	resp, err := c.httpClient.Get(c.BaseURL + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Table represents one floor table as served by the gateway
type Table struct {
	ID              int64  `json:"id"`
	Number          int    `json:"numero"`
	Capacity        int    `json:"capacidad"`
	State           string `json:"estado"`
	ActiveAccountID *int64 `json:"cuenta_activa_id,omitempty"`
	ParentTableID   *int64 `json:"mesa_padre_id,omitempty"`
}

// Ticket represents one kitchen ticket
type Ticket struct {
	ID          int64     `json:"id"`
	AccountID   int64     `json:"cuenta_id"`
	TableNumber int       `json:"mesa"`
	PayerName   string    `json:"cliente_nombre"`
	DishName    string    `json:"platillo"`
	Quantity    int       `json:"cantidad"`
	State       string    `json:"estado"`
	CreatedAt   time.Time `json:"creado_en"`
}

// MenuItem represents one dish on the catalog
type MenuItem struct {
	ID       int64   `json:"id"`
	Category string  `json:"categoria"`
	Name     string  `json:"nombre"`
	Price    float64 `json:"precio"`
}

func (c *ApiClient) get(path string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway answered %d for %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *ApiClient) post(path string) error {
	req, err := http.NewRequest(http.MethodPost, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway answered %d for %s", resp.StatusCode, path)
	}
	return nil
}

// GetTables retrieves the floor snapshot. refresh forces a refetch from the
// backend before answering.
func (c *ApiClient) GetTables(refresh bool) ([]Table, error) {
	path := "/api/v1/tables"
	if refresh {
		path += "?refresh=1"
	}
	var tables []Table
	if err := c.get(path, &tables); err != nil {
		return nil, err
	}
	return tables, nil
}

// GetKitchen retrieves the undelivered kitchen tickets
func (c *ApiClient) GetKitchen(refresh bool) ([]Ticket, error) {
	path := "/api/v1/kitchen"
	if refresh {
		path += "?refresh=1"
	}
	var tickets []Ticket
	if err := c.get(path, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// GetMenu retrieves the catalog
func (c *ApiClient) GetMenu() ([]MenuItem, error) {
	var menu []MenuItem
	if err := c.get("/api/v1/menu", &menu); err != nil {
		return nil, err
	}
	return menu, nil
}

// GetStats retrieves the gateway's stats view, including the degraded flag
func (c *ApiClient) GetStats() (map[string]interface{}, error) {
	var stats map[string]interface{}
	if err := c.get("/api/v1/stats", &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// RefreshAll marks every cached view stale on the gateway
func (c *ApiClient) RefreshAll() error {
	return c.post("/api/v1/refresh")
}
