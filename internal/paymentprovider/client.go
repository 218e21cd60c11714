package paymentprovider

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Client клиент платёжного шлюза.
type Client struct {
	shopID     string
	apiURL     string
	httpClient *http.Client
}

// NewClient создаёт новый клиент платёжного шлюза.
func NewClient(shopID, apiURL string) *Client {
	return &Client{
		shopID:     shopID,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) newRequest(method, path string, body any) (*http.Request, error) {
	url := c.apiURL + path
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Shop-Id", c.shopID)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// InitializePayment отправляет запрос на инициализацию платежа по счёту
// и возвращает подпись с адресом платёжной страницы.
func (c *Client) InitializePayment(reqParams InitPaymentRequest) (*InitPaymentResponse, error) {
	req, err := c.newRequest("POST", "/payments", reqParams)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, errors.New("unexpected status: " + resp.Status)
	}

	var initResp InitPaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&initResp); err != nil {
		return nil, err
	}
	return &initResp, nil
}
