// Package mdns 提供基于 mDNS 的局域网节点发现
//
// 每个节点注册服务实例 "<peerid前缀>.<service>.<domain>"，TXT 记录包含：
//
//	id=<base58 PeerID>
//	addrs=<host:port>[,<host:port>...]
//	name=<节点名> os=<操作系统> version=<版本>
//
// 元数据 TXT 在每次应答查询时重新生成，名称等变化无需重启即可被发现。
package mdns
