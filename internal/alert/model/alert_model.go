package model

import (
	"time"

	"github.com/google/uuid"

	cnetModel "github.com/fatelord/visionworkbench/internal/cnet/model"
)

func NewAlert(networkID string, points []cnetModel.ControlPoint) Alert {
	return Alert{
		ID:        uuid.New(),
		NetworkID: networkID,
		Points:    points,
		CreatedAt: time.Now(),
	}
}

type Alert struct {
	ID        uuid.UUID                `json:"id"`
	NetworkID string                   `json:"networkId"`
	Points    []cnetModel.ControlPoint `json:"points"`
	CreatedAt time.Time                `json:"createdAt"`
}
