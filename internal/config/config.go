package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds meshview configuration.
type Config struct {
	Physics PhysicsConfig `toml:"physics"`
	Camera  CameraConfig  `toml:"camera"`
	Render  RenderConfig  `toml:"render"`
	Loop    LoopConfig    `toml:"loop"`
	Mesh    MeshConfig    `toml:"mesh"`
}

// PhysicsConfig tunes the pairwise spring law.
type PhysicsConfig struct {
	InteractionScale      float64 `toml:"interaction_scale"`
	ConnectivityScale     float64 `toml:"connectivity_scale"`
	RestDistance          float64 `toml:"rest_distance"`
	RestDistanceConnected float64 `toml:"rest_distance_connected"`
	MaxForce              float64 `toml:"max_force"`
}

// CameraConfig controls how fast the viewport follows the swarm.
type CameraConfig struct {
	ChangeScale float64 `toml:"change_scale"`
	MaxDelta    float64 `toml:"max_delta"`
}

// RenderConfig controls colors and stroke geometry. Colors are #rrggbb.
type RenderConfig struct {
	NodeRadius     float64 `toml:"node_radius"`
	ArrowHead      float64 `toml:"arrow_head"`
	ConfirmedWidth float64 `toml:"confirmed_width"`
	ClaimWidth     float64 `toml:"claim_width"`
	Background     string  `toml:"background"`
	Alive          string  `toml:"alive"`
	Dead           string  `toml:"dead"`
	Outline        string  `toml:"outline"`
	Edge           string  `toml:"edge"`
	Label          string  `toml:"label"`
}

// LoopConfig controls frame pacing and restart behavior.
type LoopConfig struct {
	FrameIntervalMS int `toml:"frame_interval_ms"`
	ResizeSettleMS  int `toml:"resize_settle_ms"`
}

// MeshConfig controls the bundled local mesh.
type MeshConfig struct {
	InitialNodes        int `toml:"initial_nodes"`
	StabilizeIntervalMS int `toml:"stabilize_interval_ms"`
	DeadLingerMS        int `toml:"dead_linger_ms"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Physics: PhysicsConfig{
			InteractionScale:      1e-8,
			ConnectivityScale:     1e4,
			RestDistance:          400,
			RestDistanceConnected: 200,
			MaxForce:              20,
		},
		Camera: CameraConfig{ChangeScale: 0.01, MaxDelta: 5},
		Render: RenderConfig{
			NodeRadius:     25,
			ArrowHead:      10,
			ConfirmedWidth: 2,
			ClaimWidth:     1,
			Background:     "#f2f2f2",
			Alive:          "#d3d3d3", // lightgray
			Dead:           "#f5f5f5", // whitesmoke
			Outline:        "#808080",
			Edge:           "#000000",
			Label:          "#000000",
		},
		Loop: LoopConfig{FrameIntervalMS: 16, ResizeSettleMS: 500},
		Mesh: MeshConfig{InitialNodes: 11, StabilizeIntervalMS: 250, DeadLingerMS: 3000},
	}
}

// Validate rejects settings the simulator cannot run with.
func (c *Config) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"physics.interaction_scale", c.Physics.InteractionScale},
		{"physics.connectivity_scale", c.Physics.ConnectivityScale},
		{"physics.rest_distance", c.Physics.RestDistance},
		{"physics.rest_distance_connected", c.Physics.RestDistanceConnected},
		{"physics.max_force", c.Physics.MaxForce},
		{"camera.change_scale", c.Camera.ChangeScale},
		{"camera.max_delta", c.Camera.MaxDelta},
		{"render.node_radius", c.Render.NodeRadius},
		{"render.arrow_head", c.Render.ArrowHead},
		{"render.confirmed_width", c.Render.ConfirmedWidth},
		{"render.claim_width", c.Render.ClaimWidth},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%s must be a finite number, got %v", f.name, f.v)
		}
	}

	p := c.Physics
	if p.MaxForce <= 0 {
		return fmt.Errorf("physics.max_force must be positive, got %v", p.MaxForce)
	}
	if p.InteractionScale <= 0 || p.ConnectivityScale <= 0 {
		return fmt.Errorf("physics scales must be positive")
	}
	if p.RestDistanceConnected <= 0 || p.RestDistance <= 0 {
		return fmt.Errorf("physics rest distances must be positive")
	}
	if c.Camera.ChangeScale <= 0 || c.Camera.ChangeScale > 1 {
		return fmt.Errorf("camera.change_scale must be in (0, 1], got %v", c.Camera.ChangeScale)
	}
	if c.Camera.MaxDelta <= 0 {
		return fmt.Errorf("camera.max_delta must be positive, got %v", c.Camera.MaxDelta)
	}
	if c.Render.NodeRadius <= 0 {
		return fmt.Errorf("render.node_radius must be positive, got %v", c.Render.NodeRadius)
	}
	if c.Loop.FrameIntervalMS <= 0 {
		return fmt.Errorf("loop.frame_interval_ms must be positive, got %d", c.Loop.FrameIntervalMS)
	}
	if c.Mesh.StabilizeIntervalMS <= 0 {
		return fmt.Errorf("mesh.stabilize_interval_ms must be positive, got %d", c.Mesh.StabilizeIntervalMS)
	}
	if c.Mesh.InitialNodes < 0 {
		return fmt.Errorf("mesh.initial_nodes cannot be negative")
	}
	return nil
}

// ConfigDir returns the meshview config directory path.
func ConfigDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "meshview")
}

// Path returns the config file location.
func Path() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, falling back to defaults if it doesn't exist.
func Load() *Config {
	cfg := Default()

	data, err := os.ReadFile(Path())
	if err != nil {
		return cfg
	}

	_ = toml.Unmarshal(data, cfg)
	return cfg
}

// Save writes the config to disk.
func Save(cfg *Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// EnsureExists creates the config file with defaults if it doesn't exist.
func EnsureExists() error {
	if _, err := os.Stat(Path()); err == nil {
		return nil // already exists
	}
	return Save(Default())
}
