package services

import "time"

type nopMetrics struct{}

func (nopMetrics) RecordConnectionRequest(string)           {}
func (nopMetrics) RecordConnectionResponse(string)          {}
func (nopMetrics) RecordIntroRequest(string)                {}
func (nopMetrics) RecordIntroResponse(string)               {}
func (nopMetrics) RecordQuotaRejection(string)              {}
func (nopMetrics) RecordStoreLatency(string, time.Duration) {}
