package phev

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	protocol "phev-gateway/internal/protocol/phev"
)

// RegisterValue 代表一个寄存器的最新值
type RegisterValue struct {
	Reg       byte
	Data      []byte
	UpdatedAt time.Time // 最后更新时间
}

// RegisterStore 缓存车辆上报的寄存器值
type RegisterStore struct {
	registers sync.Map // map[byte]*RegisterValue
	logger    *zap.Logger
}

func NewRegisterStore(logger *zap.Logger) *RegisterStore {
	return &RegisterStore{
		logger: logger,
	}
}

// Update 保存寄存器值 (复制数据)
func (rs *RegisterStore) Update(reg byte, data []byte) {
	value := &RegisterValue{
		Reg:       reg,
		Data:      append([]byte(nil), data...),
		UpdatedAt: time.Now(),
	}
	rs.registers.Store(reg, value)
	rs.logger.Debug("[RegisterStore] Register updated", zap.Uint8("reg", reg), zap.String("data", hex.EncodeToString(data)))
}

func (rs *RegisterStore) Get(reg byte) (*RegisterValue, bool) {
	val, ok := rs.registers.Load(reg)
	if !ok {
		return nil, false
	}
	return val.(*RegisterValue), true
}

// BatteryLevel returns the state of charge in percent, or -1 if the car has not reported it.
func (rs *RegisterStore) BatteryLevel() int {
	v, ok := rs.Get(protocol.RegBatteryLevel)
	if !ok || len(v.Data) == 0 {
		return -1
	}
	return int(v.Data[0])
}

// Reset 清空缓存
func (rs *RegisterStore) Reset() {
	rs.registers.Range(func(key, value interface{}) bool {
		rs.registers.Delete(key)
		return true
	})
}

type status struct {
	VIN     string `json:"vin,omitempty"`
	Battery struct {
		SOC int `json:"soc"`
	} `json:"battery"`
	Registers map[string]string `json:"registers"`
}

// StatusJSON renders the cached registers as {"vin":..,"battery":{"soc":N},"registers":{"0a":"01"}}.
func (rs *RegisterStore) StatusJSON(vin string) ([]byte, error) {
	var s status
	s.VIN = vin
	s.Battery.SOC = rs.BatteryLevel()
	s.Registers = make(map[string]string)
	rs.registers.Range(func(key, value interface{}) bool {
		v := value.(*RegisterValue)
		s.Registers[fmt.Sprintf("%02x", v.Reg)] = hex.EncodeToString(v.Data)
		return true
	})
	return json.Marshal(s)
}
