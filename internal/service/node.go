package service

import (
	"os"

	"github.com/google/uuid"
)

// NodeInfo identifies the host and the manager instance in logs and in
// the HTTP status surface.
type NodeInfo interface {
	GetNodeId() string
	GetServiceId() string
}

type nodeInfo struct {
	nodeId    string
	serviceId string
}

func NewNodeInfo() NodeInfo {
	return &nodeInfo{
		nodeId:    generateNodeId(),
		serviceId: generateServiceId(),
	}
}

func (n *nodeInfo) GetNodeId() string {
	return n.nodeId
}

func (n *nodeInfo) GetServiceId() string {
	return n.serviceId
}

func generateNodeId() string {
	if nodeId := os.Getenv("SSHTUNNEL_NODE_ID"); nodeId != "" {
		return nodeId
	}
	if hostname, err := os.Hostname(); err == nil {
		return hostname
	}
	return uuid.New().String()
}

// The service ID is unique per manager invocation.
func generateServiceId() string {
	return uuid.New().String()
}
