package flac_test

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"io"
	"log"

	"github.com/audiodec/flac"
	"github.com/audiodec/flac/frame"
	"github.com/audiodec/flac/internal/flactest"
	"github.com/audiodec/flac/meta"
)

// exampleStream returns a FLAC stream of two stereo frames.
func exampleStream() []byte {
	hdr := frame.Header{
		HasFixedBlockSize: true,
		SampleRate:        44100,
		Channels:          frame.ChannelsLR,
		BitsPerSample:     16,
	}
	ramp := []int32{-2, -1, 0, 1, 2, 3}
	f0 := flactest.NewFrame(hdr, flactest.Constant([]int32{126, 126, 126, 126, 126, 126}), flactest.Verbatim(ramp))
	hdr.Num = 1
	hdr.Channels = frame.ChannelsMidSide
	f1 := flactest.NewFrame(hdr, flactest.Fixed(1, ramp), flactest.Fixed(2, []int32{7, 5, 3, 1, -1, -3}))
	info := &meta.StreamInfo{
		BlockSizeMin:  6,
		BlockSizeMax:  6,
		SampleRate:    44100,
		NChannels:     2,
		BitsPerSample: 16,
		NSamples:      12,
	}
	md5sum := md5.New()
	f0.Hash(md5sum)
	f1.Hash(md5sum)
	copy(info.MD5sum[:], md5sum.Sum(nil))
	comment := &meta.Block{
		Header: meta.Header{Type: meta.TypeVorbisComment},
		Body:   &meta.VorbisComment{Vendor: "example", Tags: [][2]string{{"TITLE", "ramp"}}},
	}
	return flactest.Stream(info, []*meta.Block{comment}, f0, f1)
}

func ExampleNew() {
	stream, err := flac.New(bytes.NewReader(exampleStream()), flac.VerifyMD5)
	if err != nil {
		log.Fatal(err)
	}
	defer stream.Close()

	fmt.Println(stream.Info)
	for i, block := range stream.Blocks {
		fmt.Printf("block %d: %v\n", i, block.Type)
	}
	for {
		// Parse one frame of audio samples at the time, each frame containing one
		// subframe per audio channel.
		frame, err := stream.ParseNext()
		if err != nil {
			if err == io.EOF {
				break
			}
			log.Fatal(err)
		}
		fmt.Printf("frame %d (%v)\n", frame.Num, frame.Channels)
		for i, subframe := range frame.Subframes {
			fmt.Printf("  subframe %d: %v\n", i, subframe.Samples)
		}
	}
	// Output:
	// 44100 Hz, 2 channel(s), 16 bits-per-sample, 12 samples
	// block 0: vorbis comment
	// frame 0 (independent)
	//   subframe 0: [126 126 126 126 126 126]
	//   subframe 1: [-2 -1 0 1 2 3]
	// frame 1 (mid/side)
	//   subframe 0: [-2 -1 0 1 2 3]
	//   subframe 1: [7 5 3 1 -1 -3]
}

func ExampleStream_Seek() {
	stream, err := flac.NewSeek(bytes.NewReader(exampleStream()))
	if err != nil {
		log.Fatal(err)
	}
	sampleNum, err := stream.Seek(8)
	if err != nil {
		log.Fatal(err)
	}
	frame, err := stream.ParseNext()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("first sample of frame:", sampleNum)
	fmt.Println("left channel:", frame.Subframes[0].Samples)
	// Output:
	// first sample of frame: 6
	// left channel: [-2 -1 0 1 2 3]
}
