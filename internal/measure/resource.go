////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package measure

// measure/resource.go contains the ResourceMetric object, a point in time
// record of the memory and goroutines in use

import (
	"runtime"
	"time"
)

// ResourceMetric structure stores memory and thread usage metrics.
type ResourceMetric struct {
	Time          time.Time
	MemAllocBytes uint64
	NumThreads    int
}

// SampleResources reads the current memory and goroutine usage
func SampleResources() ResourceMetric {
	memStats := runtime.MemStats{}
	runtime.ReadMemStats(&memStats)

	return ResourceMetric{
		Time:          time.Now(),
		MemAllocBytes: memStats.Alloc,
		NumThreads:    runtime.NumGoroutine(),
	}
}
