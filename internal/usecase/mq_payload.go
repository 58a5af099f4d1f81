package usecase

import (
	"encoding/json"
	"time"
)

// MQPayload 包装发送到消息队列的车辆事件
type MQPayload struct {
	Type      string      `json:"type"`
	VIN       string      `json:"vin"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// MarshalJSON copies type and vin into Data when Data encodes as a JSON object,
// so consumers that only read "data" still see them.
func (p MQPayload) MarshalJSON() ([]byte, error) {
	type plain MQPayload

	dataBytes, err := json.Marshal(p.Data)
	if err != nil {
		return nil, err
	}

	var dataMap map[string]interface{}
	if err := json.Unmarshal(dataBytes, &dataMap); err != nil || dataMap == nil {
		return json.Marshal(plain(p))
	}
	dataMap["msgType"] = p.Type
	dataMap["vin"] = p.VIN

	return json.Marshal(&struct {
		Type      string                 `json:"type"`
		VIN       string                 `json:"vin"`
		Timestamp time.Time              `json:"timestamp"`
		Data      map[string]interface{} `json:"data"`
	}{
		Type:      p.Type,
		VIN:       p.VIN,
		Timestamp: p.Timestamp,
		Data:      dataMap,
	})
}

// RegisterData 寄存器上报
type RegisterData struct {
	Register string `json:"register"` // two hex digits
	Value    string `json:"value"`    // hex
	Length   int    `json:"length"`
}

type VINData struct {
	VIN string `json:"value"`
}

type ECUVersionData struct {
	Version string `json:"version"`
}

type BatteryData struct {
	SOC int `json:"soc"`
}

type ConnectionData struct {
	State string `json:"state"`
}
