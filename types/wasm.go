package types

import (
	"github.com/cosmos/gogoproto/proto"
)

// Wire-compatible subset of the x/wasm module's protobuf types. Only the
// fields the indexer reads are declared; unknown fields (such as the
// contract-info extension) are skipped on decode.

// ContractInfo mirrors cosmwasm.wasm.v1.ContractInfo.
type ContractInfo struct {
	CodeID    uint64              `protobuf:"varint,1,opt,name=code_id,json=codeId,proto3" json:"code_id,omitempty"`
	Creator   string              `protobuf:"bytes,2,opt,name=creator,proto3" json:"creator,omitempty"`
	Admin     string              `protobuf:"bytes,3,opt,name=admin,proto3" json:"admin,omitempty"`
	Label     string              `protobuf:"bytes,4,opt,name=label,proto3" json:"label,omitempty"`
	Created   *AbsoluteTxPosition `protobuf:"bytes,5,opt,name=created,proto3" json:"created,omitempty"`
	IBCPortID string              `protobuf:"bytes,6,opt,name=ibc_port_id,json=ibcPortId,proto3" json:"ibc_port_id,omitempty"`
}

func (m *ContractInfo) Reset()         { *m = ContractInfo{} }
func (m *ContractInfo) String() string { return proto.CompactTextString(m) }
func (*ContractInfo) ProtoMessage()    {}

// AbsoluteTxPosition mirrors cosmwasm.wasm.v1.AbsoluteTxPosition.
type AbsoluteTxPosition struct {
	BlockHeight uint64 `protobuf:"varint,1,opt,name=block_height,json=blockHeight,proto3" json:"block_height,omitempty"`
	TxIndex     uint64 `protobuf:"varint,2,opt,name=tx_index,json=txIndex,proto3" json:"tx_index,omitempty"`
}

func (m *AbsoluteTxPosition) Reset()         { *m = AbsoluteTxPosition{} }
func (m *AbsoluteTxPosition) String() string { return proto.CompactTextString(m) }
func (*AbsoluteTxPosition) ProtoMessage()    {}

// QueryContractInfoRequest mirrors cosmwasm.wasm.v1.QueryContractInfoRequest.
type QueryContractInfoRequest struct {
	Address string `protobuf:"bytes,1,opt,name=address,proto3" json:"address,omitempty"`
}

func (m *QueryContractInfoRequest) Reset()         { *m = QueryContractInfoRequest{} }
func (m *QueryContractInfoRequest) String() string { return proto.CompactTextString(m) }
func (*QueryContractInfoRequest) ProtoMessage()    {}

// QueryContractInfoResponse mirrors cosmwasm.wasm.v1.QueryContractInfoResponse.
type QueryContractInfoResponse struct {
	Address      string       `protobuf:"bytes,1,opt,name=address,proto3" json:"address,omitempty"`
	ContractInfo ContractInfo `protobuf:"bytes,2,opt,name=contract_info,json=contractInfo,proto3" json:"contract_info"`
}

func (m *QueryContractInfoResponse) Reset()         { *m = QueryContractInfoResponse{} }
func (m *QueryContractInfoResponse) String() string { return proto.CompactTextString(m) }
func (*QueryContractInfoResponse) ProtoMessage()    {}

func init() {
	proto.RegisterType((*ContractInfo)(nil), "cosmwasm.wasm.v1.ContractInfo")
	proto.RegisterType((*AbsoluteTxPosition)(nil), "cosmwasm.wasm.v1.AbsoluteTxPosition")
	proto.RegisterType((*QueryContractInfoRequest)(nil), "cosmwasm.wasm.v1.QueryContractInfoRequest")
	proto.RegisterType((*QueryContractInfoResponse)(nil), "cosmwasm.wasm.v1.QueryContractInfoResponse")
}
