package observability

import "testing"

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordWireBytes(4096)
	RecordFrameDecoded(true, 512)
	RecordFrameDecoded(false, 64)
	RecordDecodeFailure()
	RecordMessageApplied("_buffer_line_added")
	RecordMessageApplied("listbuffers")
	RecordMessageApplied("")
	RecordReconnect()
}
