package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"
)

type StatsResponse struct {
	Uptime         string  `json:"uptime"`
	Tick           uint64  `json:"tick"`
	Players        int     `json:"players"`
	Alive          int     `json:"alive"`
	Snacks         int     `json:"snacks"`
	Sessions       int     `json:"sessions"`
	TotalJoins     int64   `json:"totalJoins"`
	TotalLeaves    int64   `json:"totalLeaves"`
	TotalDeaths    int64   `json:"totalDeaths"`
	TotalEaten     int64   `json:"totalEaten"`
	ChatMessages   int64   `json:"chatMessages"`
	AvgTickMs      float64 `json:"avgTickMs"`
	MaxTickMs      float64 `json:"maxTickMs"`
	Overruns       int64   `json:"overruns"`
	KeyFingerprint string  `json:"keyFingerprint"`
}

func (s *Server) Stats() StatsResponse {
	loop := s.loop.Stats()
	return StatsResponse{
		Uptime:         time.Since(s.started).Round(time.Second).String(),
		Tick:           loop.Tick,
		Players:        loop.Players,
		Alive:          loop.Alive,
		Snacks:         loop.Snacks,
		Sessions:       s.manager.Sessions(),
		TotalJoins:     s.manager.TotalJoins(),
		TotalLeaves:    s.manager.TotalLeaves(),
		TotalDeaths:    loop.TotalDeaths,
		TotalEaten:     loop.TotalEaten,
		ChatMessages:   s.chat.Posted(),
		AvgTickMs:      loop.AvgTickMs,
		MaxTickMs:      loop.MaxTickMs,
		Overruns:       loop.Overruns,
		KeyFingerprint: s.keys.Fingerprint(),
	}
}

func (s *Server) HandleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Stats()); err != nil {
		log.Printf("[STATS] encode: %v", err)
	}
}
