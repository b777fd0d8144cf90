package protocol

// Telemetry is the body of a mapResult frame: one record per command a
// worker processed. Purchase fields are set only for successful purchases.
type Telemetry struct {
	WorkerID       string `json:"workerId"`
	Timestamp      int64  `json:"timestamp"`
	RequestType    string `json:"requestType"`
	ProcessingTime int64  `json:"processingTime"`

	StoreName   string `json:"storeName,omitempty"`
	ProductName string `json:"productName,omitempty"`
	Quantity    int    `json:"quantity,omitempty"`
	Success     bool   `json:"success,omitempty"`
}

// IsPurchase reports whether t describes a committed purchase.
func (t Telemetry) IsPurchase() bool {
	return t.RequestType == RequestType(CmdBuy) && t.Success && t.Quantity > 0
}
