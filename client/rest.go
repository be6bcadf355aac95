package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-resty/resty/v2"

	"mazeserver/maze"
	"mazeserver/models"
)

var (
	ErrNameTaken = errors.New("username already taken")
	ErrWaiting   = errors.New("waiting for an opponent")
	// ErrExpired はマッチメイキングの待機状態が解除されたことを示します。
	ErrExpired = errors.New("no longer pending")
)

// APIError はsuccess:falseで返ったレスポンス
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed (%d): %s", e.Status, e.Message)
}

type apiResponse struct {
	Success         bool               `json:"success"`
	Message         string             `json:"message"`
	Token           string             `json:"token"`
	ID              int                `json:"id"`
	Available       bool               `json:"available"`
	Disconnection   bool               `json:"disconnection"`
	SelectedFromYou *bool              `json:"selectedFromYou"`
	Match           *models.Assignment `json:"match"`
	Maze            *maze.Serialized   `json:"maze"`
}

// Client はマッチングサーバーのHTTP APIを呼び出します。
type Client struct {
	rest    *resty.Client
	baseURL string
}

func New(baseURL string) *Client {
	return &Client{
		rest:    resty.New().SetHostURL(baseURL),
		baseURL: baseURL,
	}
}

// do はリクエストを送り、レスポンスを解釈します。ステータスが2xx以外でもボディを返します。
func (c *Client) do(req *resty.Request, method, path string) (apiResponse, int, error) {
	var out apiResponse
	resp, err := req.Execute(method, path)
	if err != nil {
		return out, 0, err
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return out, resp.StatusCode(), fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return out, resp.StatusCode(), nil
}

func (c *Client) expectSuccess(req *resty.Request, method, path string) (apiResponse, error) {
	out, status, err := c.do(req, method, path)
	if err != nil {
		return out, err
	}
	if !out.Success {
		return out, &APIError{Status: status, Message: out.Message}
	}
	return out, nil
}

// CheckUsername はユーザー名を登録し、WebSocket接続用のトークンを返します。
func (c *Client) CheckUsername(username string) (string, error) {
	out, status, err := c.do(c.rest.R().SetQueryParam("username", username), resty.MethodGet, "/checkUsername")
	if err != nil {
		return "", err
	}
	if !out.Success {
		if status == http.StatusOK {
			return "", ErrNameTaken
		}
		return "", &APIError{Status: status, Message: out.Message}
	}
	return out.Token, nil
}

func (c *Client) ResetUsername(username string) error {
	_, err := c.expectSuccess(c.rest.R().SetBody(map[string]string{"username": username}), resty.MethodDelete, "/reset-username")
	return err
}

func (c *Client) InviteCode() (int, error) {
	out, err := c.expectSuccess(c.rest.R(), resty.MethodGet, "/get-invite-code")
	return out.ID, err
}

func (c *Client) SetPending(username string) error {
	_, err := c.expectSuccess(c.rest.R().SetBody(map[string]string{"username": username}), resty.MethodPut, "/setPending")
	return err
}

// Matchmaking は1回ポーリングします。相手が未定ならErrWaiting、待機が解除されていればErrExpiredを返します。
func (c *Client) Matchmaking(username string) (models.Assignment, error) {
	out, status, err := c.do(c.rest.R().SetQueryParam("username", username), resty.MethodGet, "/matchmaking")
	if err != nil {
		return models.Assignment{}, err
	}
	switch {
	case out.Success && out.Match != nil:
		return *out.Match, nil
	case out.Available:
		return models.Assignment{}, ErrExpired
	case status == http.StatusOK && out.Message == "Waiting for an opponent.":
		return models.Assignment{}, ErrWaiting
	default:
		return models.Assignment{}, &APIError{Status: status, Message: out.Message}
	}
}

// SelectCharacter はキャラクターを選択します。失敗時のboolは自分が選択済みだったかを示します。
func (c *Client) SelectCharacter(username string, character models.Character, match uint64, playerNum int) (bool, error) {
	body := map[string]any{
		"username":  username,
		"character": string(character),
		"match":     match,
		"playerNum": playerNum,
	}
	out, err := c.expectSuccess(c.rest.R().SetBody(body), resty.MethodPost, "/character-selection")
	if err != nil && out.SelectedFromYou != nil {
		return *out.SelectedFromYou, err
	}
	return false, err
}

func slotParams(match uint64, playerNum int, username string) map[string]string {
	return map[string]string{
		"match":    strconv.FormatUint(match, 10),
		"player":   strconv.Itoa(playerNum),
		"username": username,
	}
}

func (c *Client) Ready(match uint64, playerNum int, username string) error {
	_, err := c.expectSuccess(c.rest.R().SetQueryParams(slotParams(match, playerNum, username)), resty.MethodGet, "/ready")
	return err
}

// StartResult は/startの結果
type StartResult struct {
	OpponentReady bool
	Disconnection bool
	Message       string
}

func (c *Client) Start(match uint64, playerNum int, username string) (StartResult, error) {
	out, status, err := c.do(c.rest.R().SetQueryParams(slotParams(match, playerNum, username)), resty.MethodGet, "/start")
	if err != nil {
		return StartResult{}, err
	}
	if status != http.StatusOK {
		return StartResult{}, &APIError{Status: status, Message: out.Message}
	}
	return StartResult{OpponentReady: out.Success, Disconnection: out.Disconnection, Message: out.Message}, nil
}

func (c *Client) Maze(match uint64) (maze.Serialized, error) {
	out, err := c.expectSuccess(c.rest.R().SetQueryParam("match", strconv.FormatUint(match, 10)), resty.MethodGet, "/maze")
	if err != nil {
		return maze.Serialized{}, err
	}
	if out.Maze == nil {
		return maze.Serialized{}, errors.New("maze missing from response")
	}
	return *out.Maze, nil
}
