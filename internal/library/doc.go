// Package library 提供一个内存中的参考 SyncTarget
//
// 每个 library 是按 (model, record, field) 寻址的字段表，合并规则为
// 最后写入者胜出：时间戳大者胜，时间戳相同时 actor 大者胜。已应用的操作 ID
// 被记录下来，重复应用是空操作。每个 library 保留操作日志，用于应答
// GetOperations 以及新节点追赶。
//
// 本地写入（Set / Delete）生成操作、立即应用，并推入 Ingress 通道交给广播器。
package library
