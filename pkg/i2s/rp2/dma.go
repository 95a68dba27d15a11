//go:build rp2040 || rp2350

// ABOUTME: Register-level DMA driver for the I2S engine
// ABOUTME: Channel claim, configuration, chaining and the shared DMA_IRQ_0 line
package rp2

import (
	"device/rp"
	"fmt"
	"runtime"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"

	"github.com/Resonate-Protocol/pico-audio-go/pkg/i2s/hal"
)

const (
	dmaBase       uintptr = 0x50000000
	dmaChanStride uintptr = 0x40
	numChannels           = 12

	regReadAddr   = 0x00
	regWriteAddr  = 0x04
	regTransCount = 0x08
	regCtrlTrig   = 0x0c
	regAl1Ctrl    = 0x10

	regINTR       = 0x400
	regINTE0      = 0x404
	regINTS0      = 0x40c
	regMultiTrig  = 0x430
	regChanAbort  = 0x444
	ctrlEnable    = 1 << 0
	ctrlIncrRead  = 1 << 4
	ctrlIncrWrite = 1 << 5
	ctrlBusy      = 1 << 24

	ctrlDataSizeShift = 2
	ctrlChainToShift  = 11
	ctrlTreqShift     = 15
)

func reg(off uintptr) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(dmaBase + off))
}

func chanReg(ch uint8, off uintptr) *volatile.Register32 {
	return reg(uintptr(ch)*dmaChanStride + off)
}

type dma struct {
	claimed uint32
	handler func()
	irq     interrupt.Interrupt
}

var controller = &dma{}

func init() {
	controller.irq = interrupt.New(rp.IRQ_DMA_IRQ_0, func(interrupt.Interrupt) {
		if h := controller.handler; h != nil {
			h()
		}
	})
}

func (d *dma) Claim(ch uint8) error {
	if ch >= numChannels {
		return fmt.Errorf("no dma channel %d", ch)
	}
	mask := uint32(1) << ch
	if d.claimed&mask != 0 {
		return fmt.Errorf("%w: dma channel %d", hal.ErrClaimed, ch)
	}
	d.claimed |= mask
	return nil
}

func (d *dma) Unclaim(ch uint8) {
	d.claimed &^= uint32(1) << ch
}

func (d *dma) Configure(ch uint8, cfg hal.DMAConfig, dst uintptr, src []byte, count uint32, trigger bool) {
	ctrl := uint32(ctrlEnable) |
		uint32(cfg.Size)<<ctrlDataSizeShift |
		uint32(cfg.ChainTo&0xf)<<ctrlChainToShift |
		(cfg.DREQ&0x3f)<<ctrlTreqShift
	if cfg.ReadIncrement {
		ctrl |= ctrlIncrRead
	}
	if cfg.WriteIncrement {
		ctrl |= ctrlIncrWrite
	}

	chanReg(ch, regReadAddr).Set(uint32(uintptr(unsafe.Pointer(unsafe.SliceData(src)))))
	chanReg(ch, regWriteAddr).Set(uint32(dst))
	chanReg(ch, regTransCount).Set(count)
	if trigger {
		chanReg(ch, regCtrlTrig).Set(ctrl)
	} else {
		chanReg(ch, regAl1Ctrl).Set(ctrl)
	}
}

func (d *dma) Start(ch uint8) {
	reg(regMultiTrig).Set(1 << ch)
}

func (d *dma) Abort(ch uint8) {
	reg(regChanAbort).Set(1 << ch)
	for reg(regChanAbort).Get()&(1<<ch) != 0 {
		runtime.Gosched()
	}
}

func (d *dma) WaitForFinish(ch uint8) {
	for chanReg(ch, regAl1Ctrl).Get()&ctrlBusy != 0 {
		runtime.Gosched()
	}
}

func (d *dma) Cleanup(ch uint8) {
	chanReg(ch, regAl1Ctrl).Set(uint32(ch) << ctrlChainToShift)
	chanReg(ch, regTransCount).Set(0)
	reg(regINTS0).Set(1 << ch)
}

func (d *dma) SetChannelIRQEnabled(ch uint8, enabled bool) {
	if enabled {
		reg(regINTE0).SetBits(1 << ch)
	} else {
		reg(regINTE0).ClearBits(1 << ch)
	}
}

func (d *dma) ChannelIRQPending(ch uint8) bool {
	return reg(regINTS0).HasBits(1 << ch)
}

func (d *dma) AcknowledgeIRQ(ch uint8) {
	reg(regINTS0).Set(1 << ch)
}

func (d *dma) SetIRQEnabled(enabled bool) {
	if enabled {
		d.irq.Enable()
	} else {
		d.irq.Disable()
	}
}

func (d *dma) SetIRQHandler(handler func()) {
	d.handler = handler
}
