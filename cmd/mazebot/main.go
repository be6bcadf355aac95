// mazebot はサーバーに2人のプレイヤーとして接続し、マッチメイキングから
// ゲームオーバーまでの一連の流れを実行する動作確認用のクライアントです。
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"mazeserver/client"
	"mazeserver/models"
	"mazeserver/utils"
)

type player struct {
	name      string
	character models.Character
	socket    *client.Socket
	match     models.Assignment
}

func main() {
	var (
		server  = flag.String("server", "http://localhost:8080", "サーバーのURL")
		prefix  = flag.String("prefix", "bot", "ユーザー名の接頭辞")
		timeout = flag.Duration("timeout", 30*time.Second, "マッチメイキングの待ち時間")
	)
	flag.Parse()

	logger, err := utils.NewDevelopmentLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(client.New(*server), *prefix, *timeout, logger); err != nil {
		logger.Error("Smoke run failed", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Smoke run complete")
}

func run(c *client.Client, prefix string, timeout time.Duration, logger *zap.Logger) error {
	suffix := time.Now().UnixNano() % 100000
	players := []*player{
		{name: fmt.Sprintf("%s-a-%d", prefix, suffix), character: models.Survivor},
		{name: fmt.Sprintf("%s-b-%d", prefix, suffix), character: models.Monster},
	}

	for _, p := range players {
		token, err := c.CheckUsername(p.name)
		if err != nil {
			return fmt.Errorf("register %s: %w", p.name, err)
		}
		defer func(name string) {
			if err := c.ResetUsername(name); err != nil {
				logger.Warn("Failed to reset username", zap.String("Username", name), zap.Error(err))
			}
		}(p.name)

		if p.socket, err = c.Dial(token); err != nil {
			return fmt.Errorf("dial %s: %w", p.name, err)
		}
		defer p.socket.Close()
		if _, err := p.socket.WaitFor(models.EventSession, 5*time.Second); err != nil {
			return fmt.Errorf("session %s: %w", p.name, err)
		}
		if err := c.SetPending(p.name); err != nil {
			return fmt.Errorf("set pending %s: %w", p.name, err)
		}
	}

	// 両者の割り当てが揃うまでポーリング
	deadline := time.Now().Add(timeout)
	for _, p := range players {
		for {
			a, err := c.Matchmaking(p.name)
			if err == nil {
				p.match = a
				break
			}
			if !errors.Is(err, client.ErrWaiting) {
				return fmt.Errorf("matchmaking %s: %w", p.name, err)
			}
			if time.Now().After(deadline) {
				return errors.New("matchmaking timed out")
			}
			time.Sleep(500 * time.Millisecond)
		}
		logger.Info("Matched",
			zap.String("Username", p.name),
			zap.Uint64("MatchID", p.match.MatchIndex),
			zap.Int("Player", p.match.PlayerNum))
	}

	id := players[0].match.MatchIndex
	for _, p := range players {
		if _, err := c.SelectCharacter(p.name, p.character, id, p.match.PlayerNum); err != nil {
			return fmt.Errorf("select character %s: %w", p.name, err)
		}
		if err := c.Ready(id, p.match.PlayerNum, p.name); err != nil {
			return fmt.Errorf("ready %s: %w", p.name, err)
		}
	}

	m, err := c.Maze(id)
	if err != nil {
		return fmt.Errorf("maze: %w", err)
	}
	logger.Info("Maze received",
		zap.Int("Nodes", len(m.Nodes)),
		zap.Int("PressurePlates", len(m.PressurePlatesPositions)),
		zap.Float64("ExitX", m.Exit.Position.X),
		zap.Float64("ExitZ", m.Exit.Position.Z))

	// 位置の更新が相手に中継されることを確認
	survivor, monster := players[0], players[1]
	update := map[string]any{
		"name":     string(survivor.character),
		"match":    id,
		"player":   survivor.match.PlayerNum,
		"position": map[string]float64{"x": 0, "y": 0, "z": 0},
	}
	if err := survivor.socket.Send(models.EventUpdate, update); err != nil {
		return err
	}
	if _, err := monster.socket.WaitFor(models.EventUpdateSurvivor, 5*time.Second); err != nil {
		return fmt.Errorf("waiting for updateSurvivor: %w", err)
	}

	gameover := models.MatchRef{Match: id, Player: survivor.match.PlayerNum}
	if err := monster.socket.Send(models.EventGameover, gameover); err != nil {
		return err
	}
	if _, err := survivor.socket.WaitFor(models.EventSetGameover, 5*time.Second); err != nil {
		return fmt.Errorf("waiting for setGameover: %w", err)
	}
	return nil
}
