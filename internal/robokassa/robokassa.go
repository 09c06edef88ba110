// Package robokassa implements the merchant-side half of the Robokassa
// protocol: signing payment links, verifying result-callback signatures and
// firing recurring (child) debits against a previously paid mother invoice.
package robokassa

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	paymentURL   = "https://auth.robokassa.ru/Merchant/Index.aspx"
	recurringURL = "https://auth.robokassa.ru/Merchant/Recurring"
)

type Client struct {
	login      string
	password1  string
	password2  string
	testMode   bool
	httpClient *http.Client
}

func New(login, password1, password2 string, testMode bool) *Client {
	return &Client{
		login:     login,
		password1: password1,
		password2: password2,
		testMode:  testMode,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Signature is the keyed digest of the protocol: the parts joined with ":"
// and hashed with MD5, hex-encoded. Ordering and delimiter are part of the
// wire contract.
func Signature(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, ":")))
	return hex.EncodeToString(sum[:])
}

// VerifyResult checks a result-callback signature computed by the provider
// over (OutSum, InvId, password2). The digest comparison is case-insensitive
// and any malformed input simply fails the check.
func (c *Client) VerifyResult(invID int64, outSum, received string) bool {
	if received == "" {
		return false
	}
	expected := Signature(outSum, strconv.FormatInt(invID, 10), c.password2)
	return strings.EqualFold(expected, received)
}

// Receipt is the fiscal receipt attached to payment requests.
type Receipt struct {
	SNO   string        `json:"sno"`
	Items []ReceiptItem `json:"items"`
}

type ReceiptItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Sum      int64  `json:"sum"`
	Tax      string `json:"tax"`
}

func receiptJSON(price int64, description string) string {
	b, _ := json.Marshal(Receipt{
		SNO: "usn_income",
		Items: []ReceiptItem{
			{Name: description, Quantity: 1, Sum: price, Tax: "none"},
		},
	})
	return string(b)
}

func (c *Client) paymentValues(tgid, invID, price int64, description string, motherInvID int64) url.Values {
	receipt := receiptJSON(price, description)
	sum := strconv.FormatInt(price, 10)
	inv := strconv.FormatInt(invID, 10)

	v := url.Values{}
	v.Set("MerchantLogin", c.login)
	v.Set("OutSum", sum)
	v.Set("InvId", inv)
	v.Set("Description", fmt.Sprintf("%s | %d", description, tgid))
	v.Set("SignatureValue", Signature(c.login, sum, inv, receipt, c.password1))
	v.Set("Receipt", receipt)
	if c.testMode {
		v.Set("IsTest", "1")
	}

	if motherInvID > 0 {
		v.Set("PreviousInvoiceID", strconv.FormatInt(motherInvID, 10))
	} else {
		v.Set("Recurring", "true")
	}
	return v
}

// PaymentURL builds the signed redirect link that starts a new (mother)
// payment for the given invoice.
func (c *Client) PaymentURL(tgid, invID, price int64, description string) string {
	return paymentURL + "?" + c.paymentValues(tgid, invID, price, description, 0).Encode()
}

// RecurringCharge asks the provider to debit a renewal invoice against the
// agreement anchored by motherInvID. The outcome arrives later through the
// result callback, so a 200 here only means the request was accepted.
func (c *Client) RecurringCharge(ctx context.Context, tgid, invID, price, motherInvID int64, description string) error {
	body := c.paymentValues(tgid, invID, price, description, motherInvID).Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, recurringURL, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("create recurring request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send recurring request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("recurring request rejected: %s", resp.Status)
	}
	return nil
}
