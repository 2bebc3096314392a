// Package transport contains the LiveKit server API client, access token
// minting and the agent event feed. The client speaks the twirp-style JSON
// endpoints exposed by the LiveKit server; each call mints a fresh
// short-lived admin token.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const requestTimeout = 15 * time.Second

// Client calls the LiveKit server API.
type Client struct {
	baseURL    string
	minter     *TokenMinter
	agentName  string
	httpClient *http.Client
}

// ClientOption configures a [Client].
type ClientOption func(*Client)

// WithClientHTTPClient replaces the HTTP client used for API calls. Useful in
// tests.
func WithClientHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a LiveKit API client. serverURL may use a ws(s) or
// http(s) scheme; websocket schemes are rewritten for the HTTP API.
// agentName is the dispatch target requested for outbound calls.
func NewClient(serverURL, apiKey, apiSecret, agentName string) (*Client, error) {
	minter, err := NewTokenMinter(apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:    httpURL(serverURL),
		minter:     minter,
		agentName:  agentName,
		httpClient: &http.Client{Timeout: requestTimeout},
	}, nil
}

// httpURL rewrites websocket schemes to their HTTP equivalents.
func httpURL(u string) string {
	switch {
	case strings.HasPrefix(u, "ws://"):
		return "http://" + strings.TrimPrefix(u, "ws://")
	case strings.HasPrefix(u, "wss://"):
		return "https://" + strings.TrimPrefix(u, "wss://")
	}
	return strings.TrimSuffix(u, "/")
}

// Room is the subset of the LiveKit room object this service uses.
type Room struct {
	Name     string `json:"name"`
	SID      string `json:"sid"`
	Metadata string `json:"metadata"`
}

// NewRoomName derives a room name for an outbound call to the given
// assistant. The assistant ID forms the prefix so the agent worker can
// recover it by splitting on the first underscore; the suffix keeps
// concurrent calls to the same assistant in distinct rooms.
func NewRoomName(assistantID string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return assistantID + "_" + suffix
}

// CreateRoom creates a LiveKit room with the given name and metadata.
func (c *Client) CreateRoom(ctx context.Context, name, metadata string) (Room, error) {
	req := map[string]any{
		"name":             name,
		"metadata":         metadata,
		"empty_timeout":    300,
		"max_participants": 10,
	}
	var room Room
	if err := c.call(ctx, "/twirp/livekit.RoomService/CreateRoom", req, &room); err != nil {
		return Room{}, fmt.Errorf("transport: create room %q: %w", name, err)
	}
	return room, nil
}

// AgentDispatch is the response object for an explicit agent dispatch.
type AgentDispatch struct {
	ID        string `json:"id"`
	AgentName string `json:"agent_name"`
	Room      string `json:"room"`
}

// CreateAgentDispatch requests the configured agent to join room. metadata is
// passed through to the agent job.
func (c *Client) CreateAgentDispatch(ctx context.Context, room, metadata string) (AgentDispatch, error) {
	req := map[string]any{
		"agent_name": c.agentName,
		"room":       room,
		"metadata":   metadata,
	}
	var dispatch AgentDispatch
	if err := c.call(ctx, "/twirp/livekit.AgentDispatchService/CreateDispatch", req, &dispatch); err != nil {
		return AgentDispatch{}, fmt.Errorf("transport: create dispatch for %q: %w", room, err)
	}
	return dispatch, nil
}

// SIPOutboundTrunk describes a trunk created on the LiveKit server.
type SIPOutboundTrunk struct {
	SIPTrunkID string   `json:"sip_trunk_id"`
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	Numbers    []string `json:"numbers"`
}

// CreateSIPOutboundTrunk provisions an outbound SIP trunk pointing at the
// given provider address, authenticating with username/password.
func (c *Client) CreateSIPOutboundTrunk(ctx context.Context, name, address string, numbers []string, authUser, authPass string) (SIPOutboundTrunk, error) {
	req := map[string]any{
		"trunk": map[string]any{
			"name":          name,
			"address":       address,
			"numbers":       numbers,
			"auth_username": authUser,
			"auth_password": authPass,
		},
	}
	var trunk SIPOutboundTrunk
	if err := c.call(ctx, "/twirp/livekit.SIP/CreateSIPOutboundTrunk", req, &trunk); err != nil {
		return SIPOutboundTrunk{}, fmt.Errorf("transport: create sip trunk %q: %w", name, err)
	}
	return trunk, nil
}

// SIPParticipant is the response object for a dialled SIP participant.
type SIPParticipant struct {
	ParticipantID       string `json:"participant_id"`
	ParticipantIdentity string `json:"participant_identity"`
	RoomName            string `json:"room_name"`
}

// CreateSIPParticipant dials toNumber through trunkID and places the callee
// into room.
func (c *Client) CreateSIPParticipant(ctx context.Context, trunkID, room, toNumber string) (SIPParticipant, error) {
	req := map[string]any{
		"sip_trunk_id":         trunkID,
		"sip_call_to":          toNumber,
		"room_name":            room,
		"participant_identity": "phone_" + toNumber,
		"wait_until_answered":  true,
	}
	var p SIPParticipant
	if err := c.call(ctx, "/twirp/livekit.SIP/CreateSIPParticipant", req, &p); err != nil {
		return SIPParticipant{}, fmt.Errorf("transport: dial %q into %q: %w", toNumber, room, err)
	}
	return p, nil
}

// EgressInfo is the subset of a LiveKit egress object needed to locate a
// recording.
type EgressInfo struct {
	EgressID    string             `json:"egress_id"`
	RoomName    string             `json:"room_name"`
	Status      string             `json:"status"`
	FileResults []EgressFileResult `json:"file_results"`
}

// EgressFileResult describes one file written by an egress operation.
type EgressFileResult struct {
	Filename string `json:"filename"`
	Location string `json:"location"`
}

// ListEgress returns the egress operations recorded for room.
func (c *Client) ListEgress(ctx context.Context, room string) ([]EgressInfo, error) {
	req := map[string]any{"room_name": room}
	var resp struct {
		Items []EgressInfo `json:"items"`
	}
	if err := c.call(ctx, "/twirp/livekit.Egress/ListEgress", req, &resp); err != nil {
		return nil, fmt.Errorf("transport: list egress for %q: %w", room, err)
	}
	return resp.Items, nil
}

// call performs one authenticated twirp-style POST, decoding the JSON
// response into out when out is non-nil.
func (c *Client) call(ctx context.Context, path string, reqBody any, out any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	token, err := c.minter.AdminToken("api-livekit")
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
