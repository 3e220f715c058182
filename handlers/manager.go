package handlers

import (
	"log"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/4cecoder/snakeserver/game"
	"github.com/4cecoder/snakeserver/models"
	"github.com/google/uuid"
)

// Manager tracks connected players and keeps them in step with the game loop.
type Manager struct {
	loop *game.Loop

	mu      sync.Mutex
	players map[string]string // player ID -> remote address

	totalJoins  atomic.Int64
	totalLeaves atomic.Int64
}

func NewManager(loop *game.Loop) *Manager {
	return &Manager{
		loop:    loop,
		players: make(map[string]string),
	}
}

// Register gives the connection a fresh player ID and color and spawns its snake.
func (m *Manager) Register(remote string) (string, error) {
	playerID := generatePlayerID()
	if err := m.loop.Join(playerID, randomColor()); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.players[playerID] = remote
	m.mu.Unlock()

	m.totalJoins.Add(1)
	log.Printf("[JOIN] player %s from %s", playerID, remote)
	return playerID, nil
}

// Unregister removes the player from the game. Calling it twice is harmless.
func (m *Manager) Unregister(playerID string) bool {
	m.mu.Lock()
	remote, ok := m.players[playerID]
	delete(m.players, playerID)
	m.mu.Unlock()

	m.loop.Leave(playerID)
	if !ok {
		return false
	}
	m.totalLeaves.Add(1)
	log.Printf("[LEAVE] player %s from %s", playerID, remote)
	return true
}

func (m *Manager) Sessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.players)
}

func (m *Manager) TotalJoins() int64  { return m.totalJoins.Load() }
func (m *Manager) TotalLeaves() int64 { return m.totalLeaves.Load() }

func randomColor() models.Color {
	return models.Palette[rand.IntN(len(models.Palette))]
}

func generatePlayerID() string {
	return uuid.New().String()
}
