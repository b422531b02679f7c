package metrics

import (
	"sync"
	"testing"
)

// MockReporter 用于测试的Mock Reporter实现
type MockReporter struct {
	reportedRecords []Record
	mu              sync.Mutex
}

// NewMockReporter 创建一个新的MockReporter
func NewMockReporter() *MockReporter {
	return &MockReporter{
		reportedRecords: []Record{},
	}
}

// Report 实现Reporter接口的Report方法
func (mr *MockReporter) Report(r Record) {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	mr.reportedRecords = append(mr.reportedRecords, *r.Clone())
}

// GetReportedRecords 获取所有上报的记录
func (mr *MockReporter) GetReportedRecords() []Record {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	return append([]Record{}, mr.reportedRecords...)
}

// Reset 清空已上报的记录
func (mr *MockReporter) Reset() {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	mr.reportedRecords = mr.reportedRecords[:0]
}

// 测试Counter接口的基本功能
func TestCounter(t *testing.T) {
	mockReporter := NewMockReporter()
	SetMetricsReporters([]Reporter{mockReporter})
	defer SetMetricsReporters(nil)

	counter := getCounter("append_total", GroupTyto)

	t.Run("Incr", func(t *testing.T) {
		counter.Incr(1)
		records := mockReporter.GetReportedRecords()
		if len(records) != 1 {
			t.Fatalf("Expected 1 record, got %d", len(records))
		}

		record := records[0]
		if record.Value() != 1 {
			t.Errorf("Expected value 1, got %v", record.Value())
		}
		if record.Metrics().Name() != "append_total" {
			t.Errorf("Expected name 'append_total', got '%s'", record.Metrics().Name())
		}
		if record.Metrics().Group() != GroupTyto {
			t.Errorf("Expected group '%s', got '%s'", GroupTyto, record.Metrics().Group())
		}
		if record.Metrics().Policy() != Policy_Sum {
			t.Errorf("Expected policy Policy_Sum, got %v", record.Metrics().Policy())
		}
	})

	t.Run("IncrWithDim", func(t *testing.T) {
		mockReporter.Reset()

		dimensions := Dimension{DimAppender: "file", DimReason: "lossy"}
		counter.IncrWithDim(5, dimensions)
		records := mockReporter.GetReportedRecords()
		if len(records) != 1 {
			t.Fatalf("Expected 1 record, got %d", len(records))
		}

		record := records[0]
		if record.Value() != 5 {
			t.Errorf("Expected value 5, got %v", record.Value())
		}
		dim := record.Dimensions()
		if dim[DimAppender] != "file" {
			t.Errorf("Expected dimension appender 'file', got '%s'", dim[DimAppender])
		}
		if dim[DimReason] != "lossy" {
			t.Errorf("Expected dimension reason 'lossy', got '%s'", dim[DimReason])
		}
	})

	// 每次Incr产生一条记录，聚合由Reporter负责
	t.Run("Concurrent", func(t *testing.T) {
		mockReporter.Reset()

		var wg sync.WaitGroup
		concurrency := 10
		iterations := 100
		wg.Add(concurrency)
		for i := 0; i < concurrency; i++ {
			go func() {
				defer wg.Done()
				for j := 0; j < iterations; j++ {
					counter.Incr(1)
				}
			}()
		}
		wg.Wait()

		records := mockReporter.GetReportedRecords()
		if len(records) != concurrency*iterations {
			t.Errorf("Expected %d records, got %d", concurrency*iterations, len(records))
		}
	})
}

// 测试Counter的工具函数
func TestCounterHelperFunctions(t *testing.T) {
	mockReporter := NewMockReporter()
	SetMetricsReporters([]Reporter{mockReporter})
	defer SetMetricsReporters(nil)

	IncrCounterWithGroup(NameAppenderRolloverTotal, GroupTyto, 2)
	records := mockReporter.GetReportedRecords()
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}

	record := records[0]
	if record.Value() != 2 {
		t.Errorf("Expected value 2, got %v", record.Value())
	}
	if record.Metrics().Name() != NameAppenderRolloverTotal {
		t.Errorf("Expected name '%s', got '%s'", NameAppenderRolloverTotal, record.Metrics().Name())
	}

	mockReporter.Reset()
	dimensions := Dimension{DimAppender: "rolling", DimKind: "size"}
	IncrCounterWithDimGroup(NameAppenderRolloverTotal, GroupTyto, 1, dimensions)
	records = mockReporter.GetReportedRecords()
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}

	record = records[0]
	if record.Value() != 1 {
		t.Errorf("Expected value 1, got %v", record.Value())
	}
	dim := record.Dimensions()
	if dim[DimAppender] != "rolling" {
		t.Errorf("Expected dimension appender 'rolling', got '%s'", dim[DimAppender])
	}
	if dim[DimKind] != "size" {
		t.Errorf("Expected dimension kind 'size', got '%s'", dim[DimKind])
	}
}

// 同名Counter应复用同一个实例
func TestCounterRegistryReuse(t *testing.T) {
	c1 := getCounter("reuse_counter", "test_group")
	c2 := getCounter("reuse_counter", "test_group")
	if c1 != c2 {
		t.Error("Expected the same counter instance for the same name")
	}
}
