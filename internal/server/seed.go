package server

import (
	"context"
	"fmt"
	"os"

	"apimon/internal/features/monitor/models"

	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML layout of the startup endpoint list
type SeedFile struct {
	Endpoints []models.EndpointCreate `yaml:"endpoints"`
}

// LoadSeedFile reads endpoint definitions from a YAML file
func LoadSeedFile(path string) ([]models.EndpointCreate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	return seed.Endpoints, nil
}

// seedEndpoints registers the seed file's endpoints when nothing is monitored yet
func (s *Server) seedEndpoints(ctx context.Context, path string) error {
	service := s.monitor.Service()
	if len(service.ListEndpoints()) > 0 {
		s.logger.Info("Endpoints already configured, skipping seed file", "path", path)
		return nil
	}

	endpoints, err := LoadSeedFile(path)
	if err != nil {
		return err
	}

	for _, input := range endpoints {
		endpoint, err := service.AddEndpoint(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to seed endpoint %q: %w", input.Name, err)
		}
		s.logger.Info("Seeded endpoint", "endpoint_id", endpoint.ID, "url", endpoint.URL)
	}
	return nil
}
