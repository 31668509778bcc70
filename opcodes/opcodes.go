// Package opcodes holds the per-opcode effect tables a VM tracer needs: how
// many stack-top values an op pushes (for VmTrace's "push" capture), which
// ops pre-plant a memory window, and the opcode name table with the one
// KECCAK256→SHA3 rename carried over from the trace format's history.
//
// The opcode constants themselves are reused from go-ethereum's core/vm
// package rather than redeclared here; this tracer core never imports
// the interpreter that executes them.
package opcodes

import "github.com/ethereum/go-ethereum/core/vm"

// Name returns the opcode's display name, substituting SHA3 for
// go-ethereum's KECCAK256.
func Name(op vm.OpCode) string {
	if op == vm.KECCAK256 {
		return "SHA3"
	}
	return op.String()
}

var oneStackPush = map[vm.OpCode]bool{
	vm.CALLDATALOAD: true, vm.SLOAD: true, vm.MLOAD: true, vm.CALLDATASIZE: true,
	vm.ADD: true, vm.SUB: true, vm.MUL: true, vm.DIV: true, vm.SDIV: true,
	vm.MOD: true, vm.MULMOD: true, vm.ADDMOD: true, vm.EXP: true, vm.SIGNEXTEND: true,
	vm.LT: true, vm.GT: true, vm.SLT: true, vm.SGT: true, vm.EQ: true, vm.ISZERO: true,
	vm.AND: true, vm.OR: true, vm.XOR: true, vm.NOT: true, vm.BYTE: true,
	vm.SHL: true, vm.SHR: true, vm.SAR: true, vm.KECCAK256: true,
	vm.CALLVALUE: true, vm.CALLER: true, vm.ADDRESS: true, vm.GAS: true,
	vm.RETURNDATASIZE: true, vm.EXTCODESIZE: true, vm.NUMBER: true, vm.PC: true,
	vm.TIMESTAMP: true, vm.BALANCE: true, vm.SELFBALANCE: true, vm.BASEFEE: true,
	vm.BLOCKHASH: true, vm.ORIGIN: true, vm.CODESIZE: true, vm.GASLIMIT: true,
	vm.GASPRICE: true, vm.MSIZE: true, vm.EXTCODEHASH: true,
	vm.STATICCALL: true, vm.DELEGATECALL: true, vm.CALL: true, vm.CALLCODE: true,
	vm.CREATE: true, vm.CREATE2: true,
}

// StackPushCount returns how many values pushed by op should be captured
// into the op's trace-ex "push" list.
func StackPushCount(op vm.OpCode) int {
	switch {
	case op >= vm.PUSH1 && op <= vm.PUSH32:
		return 1
	case op >= vm.SWAP1 && op <= vm.SWAP16:
		return int(op-vm.SWAP1) + 2
	case op >= vm.DUP1 && op <= vm.DUP16:
		return int(op-vm.DUP1) + 2
	case oneStackPush[op]:
		return 1
	default:
		return 0
	}
}

// MemoryWindow is a pre-planted (offset, length) pair computed from an
// opcode's stack arguments at emission time; the actual bytes are filled in
// on the following instruction-start once the write has landed in memory.
type MemoryWindow struct {
	Offset uint64
	Len    uint64
}

// PlanMemoryWindow returns the memory window an opcode touches, derived
// from the stack-top values visible when the opcode is about to execute
// (stack[0] topmost). ok is false for opcodes that don't touch memory.
func PlanMemoryWindow(op vm.OpCode, stackTop func(n int) []uint64) (w MemoryWindow, ok bool) {
	switch op {
	case vm.MSTORE, vm.MLOAD:
		s := stackTop(1)
		return MemoryWindow{Offset: s[0], Len: 32}, true
	case vm.MSTORE8:
		s := stackTop(1)
		return MemoryWindow{Offset: s[0], Len: 1}, true
	case vm.RETURNDATACOPY, vm.CALLDATACOPY, vm.CODECOPY:
		s := stackTop(3)
		return MemoryWindow{Offset: s[0], Len: s[2]}, true
	case vm.STATICCALL, vm.DELEGATECALL:
		// args: gas, address, argsOffset, argsLength, retOffset, retLength
		s := stackTop(6)
		return MemoryWindow{Offset: s[4], Len: s[5]}, true
	case vm.CALL, vm.CALLCODE:
		// args: gas, address, value, argsOffset, argsLength, retOffset, retLength
		s := stackTop(7)
		return MemoryWindow{Offset: s[5], Len: s[6]}, true
	case vm.CREATE, vm.CREATE2:
		// Placeholder; dropped by the caller if Len==0 once filled in.
		return MemoryWindow{Offset: 0, Len: 0}, true
	default:
		return MemoryWindow{}, false
	}
}

// HasStorageWrite reports whether op records a storage write intent.
// Only SSTORE does.
func HasStorageWrite(op vm.OpCode) bool { return op == vm.SSTORE }

// IsCallOrCreate reports whether op enters a nested frame.
func IsCallOrCreate(op vm.OpCode) bool {
	switch op {
	case vm.CALL, vm.CALLCODE, vm.DELEGATECALL, vm.STATICCALL, vm.CREATE, vm.CREATE2:
		return true
	default:
		return false
	}
}

// IsCallMessage reports whether op is one of CALL/STATICCALL/DELEGATECALL —
// the frame types whose call-site gas cost is adjusted when the nested
// frame opens (CREATE/CREATE2 are excluded: they carry no such adjustment).
func IsCallMessage(op vm.OpCode) bool {
	switch op {
	case vm.CALL, vm.STATICCALL, vm.DELEGATECALL:
		return true
	default:
		return false
	}
}
